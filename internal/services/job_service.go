package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/repodoc-backend/internal/clients/github"
	jobrepo "github.com/yungbote/repodoc-backend/internal/data/repos/jobs"
	userrepo "github.com/yungbote/repodoc-backend/internal/data/repos/users"
	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/pkg/apperr"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

// JobService owns the job lifecycle outside the worker: submission with
// duplicate handling, reads, and retriggering finished runs.
type JobService interface {
	// Create submits a run. Submitting a URL with a live or completed job
	// returns that job (created=false); a failed job is replaced by a
	// fresh one.
	Create(ctx context.Context, sourceURL, kind string, actorID *uuid.UUID) (job *types.Job, created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*types.Job, error)
	List(ctx context.Context, status string, limit, offset int) ([]*types.Job, error)
	// Retrigger queues a completed or still-pending job again.
	Retrigger(ctx context.Context, id uuid.UUID) (*types.Job, error)
}

type jobService struct {
	jobs   jobrepo.JobRepo
	users  userrepo.UserRepo
	tokens TokenService
	gh     github.Client
	log    *logger.Logger
}

func NewJobService(jobs jobrepo.JobRepo, users userrepo.UserRepo, tokens TokenService, gh github.Client, log *logger.Logger) JobService {
	return &jobService{
		jobs:   jobs,
		users:  users,
		tokens: tokens,
		gh:     gh,
		log:    log.With("service", "JobService"),
	}
}

func (s *jobService) Create(ctx context.Context, sourceURL, kind string, actorID *uuid.UUID) (*types.Job, bool, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	owner, repo, err := github.ParseRepoURL(sourceURL)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
	}
	if !types.ValidKind(kind) {
		return nil, false, fmt.Errorf("%w: unknown kind %q", apperr.ErrInvalidArgument, kind)
	}

	dbc := dbctx.Context{Ctx: ctx}
	existing, err := s.jobs.GetBySourceURL(dbc, sourceURL)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		if existing.Status != types.StatusFailed {
			return existing, false, nil
		}
		// A failed job blocks nothing: replace it with a fresh attempt.
		if err := s.jobs.Delete(dbc, existing.ID); err != nil {
			return nil, false, err
		}
	}

	job := &types.Job{
		SourceURL:      sourceURL,
		Kind:           kind,
		Status:         types.StatusPending,
		ActorID:        actorID,
		HasWriteAccess: s.checkWriteAccess(ctx, actorID, owner, repo),
	}
	created, err := s.jobs.Create(dbc, job)
	if err != nil {
		return nil, false, err
	}
	s.log.Info("Job created", "job_id", created.ID, "kind", kind, "has_write_access", created.HasWriteAccess)
	return created, true, nil
}

func (s *jobService) Get(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	return s.jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *jobService) List(ctx context.Context, status string, limit, offset int) ([]*types.Job, error) {
	if status != "" {
		switch status {
		case types.StatusPending, types.StatusProcessing, types.StatusCompleted, types.StatusFailed:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidArgument, status)
		}
	}
	return s.jobs.List(dbctx.Context{Ctx: ctx}, status, limit, offset)
}

func (s *jobService) Retrigger(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.jobs.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if !job.Retriggerable() {
		return nil, fmt.Errorf("%w: job is %s", apperr.ErrConflict, job.Status)
	}
	ok, err := s.jobs.UpdateFieldsUnlessStatus(dbc, id, []string{types.StatusProcessing, types.StatusFailed}, map[string]interface{}{
		"status":        types.StatusPending,
		"step":          "",
		"error_message": "",
		"locked_at":     nil,
		"heartbeat_at":  nil,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: job changed status", apperr.ErrConflict)
	}
	return s.jobs.GetByID(dbc, id)
}

// checkWriteAccess decides PR-vs-artifact delivery once, at submission.
// It is fail-closed: no actor, no token, or any lookup error means false,
// which routes delivery to the artifact store.
func (s *jobService) checkWriteAccess(ctx context.Context, actorID *uuid.UUID, owner, repo string) bool {
	if actorID == nil || s.users == nil || s.tokens == nil || s.gh == nil {
		return false
	}
	user, err := s.users.GetByID(dbctx.Context{Ctx: ctx}, *actorID)
	if err != nil || user == nil || user.EncryptedToken == "" {
		return false
	}
	token, err := s.tokens.Decrypt(user.EncryptedToken)
	if err != nil {
		s.log.Warn("Stored credential unusable during access check", "actor_id", *actorID)
		return false
	}
	ghRepo, err := s.gh.Repository(ctx, token, owner, repo)
	if err != nil {
		s.log.Warn("Repository access check failed", "owner", owner, "repo", repo, "error", err)
		return false
	}
	return ghRepo.Permissions.Push || ghRepo.Permissions.Admin
}
