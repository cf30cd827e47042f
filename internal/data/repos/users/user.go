package users

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/repodoc-backend/internal/domain/users"
	"github.com/yungbote/repodoc-backend/internal/pkg/apperr"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

type UserRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByGithubID(dbc dbctx.Context, githubID int64) (*types.User, error)
	Upsert(dbc dbctx.Context, user *types.User) (*types.User, error)
	SetEncryptedToken(dbc dbctx.Context, id uuid.UUID, encryptedToken string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{
		db:  db,
		log: baseLog.With("repo", "UserRepo"),
	}
}

func (r *userRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	if id == uuid.Nil {
		return nil, apperr.ErrNotFound
	}
	var user types.User
	err := r.handle(dbc).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByGithubID(dbc dbctx.Context, githubID int64) (*types.User, error) {
	var user types.User
	err := r.handle(dbc).Where("github_id = ?", githubID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert inserts the user or refreshes profile fields when the github_id
// already exists. The encrypted token is only written through
// SetEncryptedToken so a profile refresh never clears it.
func (r *userRepo) Upsert(dbc dbctx.Context, user *types.User) (*types.User, error) {
	if user == nil {
		return nil, apperr.ErrInvalidArgument
	}
	err := r.handle(dbc).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "github_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"login", "name", "email", "updated_at",
		}),
	}).Create(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) SetEncryptedToken(dbc dbctx.Context, id uuid.UUID, encryptedToken string) error {
	if id == uuid.Nil {
		return apperr.ErrNotFound
	}
	now := time.Now()
	return r.handle(dbc).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"encrypted_token": encryptedToken,
			"token_set_at":    now,
			"updated_at":      now,
		}).Error
}
