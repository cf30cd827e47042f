package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/pkg/apperr"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

type JobRepo interface {
	Create(dbc dbctx.Context, job *types.Job) (*types.Job, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error)
	GetBySourceURL(dbc dbctx.Context, sourceURL string) (*types.Job, error)
	List(dbc dbctx.Context, status string, limit, offset int) ([]*types.Job, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	ClaimNextPending(dbc dbctx.Context, staleProcessing time.Duration) (*types.Job, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	FailStuckProcessing(dbc dbctx.Context, olderThan time.Duration, message string) (int64, error)
	ListTerminalBefore(dbc dbctx.Context, cutoff time.Time) ([]uuid.UUID, error)
	DeleteTerminalBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *jobRepo) Create(dbc dbctx.Context, job *types.Job) (*types.Job, error) {
	if job == nil {
		return nil, apperr.ErrInvalidArgument
	}
	if err := r.handle(dbc).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error) {
	if id == uuid.Nil {
		return nil, apperr.ErrNotFound
	}
	var job types.Job
	err := r.handle(dbc).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) GetBySourceURL(dbc dbctx.Context, sourceURL string) (*types.Job, error) {
	if sourceURL == "" {
		return nil, apperr.ErrNotFound
	}
	var job types.Job
	err := r.handle(dbc).
		Where("source_url = ?", sourceURL).
		Order("created_at DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, apperr.ErrNotFound
	}
	return &job, nil
}

func (r *jobRepo) List(dbc dbctx.Context, status string, limit, offset int) ([]*types.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := r.handle(dbc).Model(&types.Job{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*types.Job
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return r.handle(dbc).Where("id = ?", id).Delete(&types.Job{}).Error
}

// ClaimNextPending atomically picks the oldest runnable job and moves it to
// processing. Runnable means pending, or processing whose heartbeat went
// quiet for longer than staleProcessing (a worker died mid-run).
func (r *jobRepo) ClaimNextPending(dbc dbctx.Context, staleProcessing time.Duration) (*types.Job, error) {
	now := time.Now()
	staleCutoff := now.Add(-staleProcessing)
	var claimed *types.Job
	err := r.handle(dbc).Transaction(func(txx *gorm.DB) error {
		var job types.Job
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.StatusPending, types.StatusProcessing, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.Job{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.StatusProcessing,
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.handle(dbc).
		Model(&types.Job{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := r.handle(dbc).
		Model(&types.Job{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return r.handle(dbc).
		Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.StatusProcessing).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

// FailStuckProcessing marks processing jobs whose heartbeat went quiet for
// longer than olderThan as failed. Returns the number of rows flipped.
func (r *jobRepo) FailStuckProcessing(dbc dbctx.Context, olderThan time.Duration, message string) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-olderThan)
	res := r.handle(dbc).
		Model(&types.Job{}).
		Where("status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?", types.StatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        types.StatusFailed,
			"error_message": message,
			"updated_at":    now,
		})
	return res.RowsAffected, res.Error
}

// ListTerminalBefore returns the ids of completed and failed jobs last
// touched before cutoff, so their artifacts can be purged ahead of the
// row delete.
func (r *jobRepo) ListTerminalBefore(dbc dbctx.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.handle(dbc).
		Model(&types.Job{}).
		Where("status IN ? AND updated_at < ?", []string{types.StatusCompleted, types.StatusFailed}, cutoff).
		Pluck("id", &ids).Error
	return ids, err
}

// DeleteTerminalBefore removes completed and failed jobs last touched before
// cutoff. Retention sweep.
func (r *jobRepo) DeleteTerminalBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := r.handle(dbc).
		Where("status IN ? AND updated_at < ?", []string{types.StatusCompleted, types.StatusFailed}, cutoff).
		Delete(&types.Job{})
	return res.RowsAffected, res.Error
}
