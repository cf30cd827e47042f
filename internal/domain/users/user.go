package users

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated submitter. The GitHub access token is stored
// encrypted and never serialized into API responses or logs.
type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GithubID       int64      `gorm:"column:github_id;uniqueIndex" json:"github_id"`
	Login          string     `gorm:"column:login;not null" json:"login"`
	Name           string     `gorm:"column:name" json:"name,omitempty"`
	Email          string     `gorm:"column:email" json:"email,omitempty"`
	EncryptedToken string     `gorm:"column:encrypted_token" json:"-"`
	TokenSetAt     *time.Time `gorm:"column:token_set_at" json:"-"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }
