package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Job statuses. A job is terminal once completed or failed; failed jobs can
// be replaced by a fresh submission, completed ones re-triggered.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job kinds select which pipeline runs.
const (
	KindDocument = "document"
	KindAnnotate = "annotate"
)

// Job is one documentation run over one repository.
type Job struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceURL      string         `gorm:"column:source_url;not null;uniqueIndex" json:"source_url"`
	Kind           string         `gorm:"column:kind;not null;index" json:"kind"`
	Status         string         `gorm:"column:status;not null;index;default:pending" json:"status"`
	Step           string         `gorm:"column:step" json:"step,omitempty"`
	ErrorMessage   string         `gorm:"column:error_message" json:"error_message,omitempty"`
	ActorID        *uuid.UUID     `gorm:"type:uuid;column:actor_id;index" json:"actor_id,omitempty"`
	HasWriteAccess bool           `gorm:"column:has_write_access;not null;default:false" json:"has_write_access"`
	OutputURL      string         `gorm:"column:output_url" json:"output_url,omitempty"`
	PullRequestURL string         `gorm:"column:pull_request_url" json:"pull_request_url,omitempty"`
	Result         datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	LockedAt       *time.Time     `gorm:"column:locked_at" json:"-"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at" json:"-"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string { return "job" }

// Terminal reports whether the job reached a final status.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Retriggerable reports whether the job may be queued again as-is.
// Processing jobs are busy and failed jobs must be re-submitted instead.
func (j *Job) Retriggerable() bool {
	return j.Status == StatusCompleted || j.Status == StatusPending
}

// ValidKind reports whether k names a known pipeline.
func ValidKind(k string) bool {
	return k == KindDocument || k == KindAnnotate
}
