package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/repodoc-backend/internal/clients/github"
	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	users "github.com/yungbote/repodoc-backend/internal/domain/users"
	"github.com/yungbote/repodoc-backend/internal/pkg/apperr"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

type memJobRepo struct {
	rows map[uuid.UUID]*types.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{rows: map[uuid.UUID]*types.Job{}}
}

func (m *memJobRepo) Create(dbc dbctx.Context, job *types.Job) (*types.Job, error) {
	cp := *job
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	m.rows[cp.ID] = &cp
	return &cp, nil
}

func (m *memJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error) {
	j, ok := m.rows[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) GetBySourceURL(dbc dbctx.Context, sourceURL string) (*types.Job, error) {
	for _, j := range m.rows {
		if j.SourceURL == sourceURL {
			cp := *j
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memJobRepo) List(dbc dbctx.Context, status string, limit, offset int) ([]*types.Job, error) {
	var out []*types.Job
	for _, j := range m.rows {
		if status == "" || j.Status == status {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

func (m *memJobRepo) ClaimNextPending(dbc dbctx.Context, stale time.Duration) (*types.Job, error) {
	return nil, nil
}

func (m *memJobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	_, err := m.UpdateFieldsUnlessStatus(dbc, id, nil, updates)
	return err
}

func (m *memJobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	j, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	for _, st := range disallowed {
		if j.Status == st {
			return false, nil
		}
	}
	if v, ok := updates["status"].(string); ok {
		j.Status = v
	}
	if v, ok := updates["step"].(string); ok {
		j.Step = v
	}
	if v, ok := updates["error_message"].(string); ok {
		j.ErrorMessage = v
	}
	return true, nil
}

func (m *memJobRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error { return nil }

func (m *memJobRepo) FailStuckProcessing(dbc dbctx.Context, olderThan time.Duration, message string) (int64, error) {
	return 0, nil
}

func (m *memJobRepo) ListTerminalBefore(dbc dbctx.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

func (m *memJobRepo) DeleteTerminalBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type memUserRepo struct {
	byID map[uuid.UUID]*users.User
}

func (m *memUserRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*users.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByGithubID(dbc dbctx.Context, githubID int64) (*users.User, error) {
	return nil, apperr.ErrNotFound
}

func (m *memUserRepo) Upsert(dbc dbctx.Context, user *users.User) (*users.User, error) {
	return user, nil
}

func (m *memUserRepo) SetEncryptedToken(dbc dbctx.Context, id uuid.UUID, encryptedToken string) error {
	return nil
}

type stubTokens struct {
	plain string
	err   error
}

func (s *stubTokens) Encrypt(plaintext string) (string, error) { return "v1:" + plaintext, nil }
func (s *stubTokens) Decrypt(sealed string) (string, error)    { return s.plain, s.err }

type stubGithub struct {
	repo *github.Repository
	err  error
}

func (s *stubGithub) AuthenticatedUser(ctx context.Context, token string) (*github.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubGithub) Repository(ctx context.Context, token, owner, repo string) (*github.Repository, error) {
	return s.repo, s.err
}

func (s *stubGithub) CreatePullRequest(ctx context.Context, token, owner, repo string, in github.PullRequestInput) (*github.PullRequest, error) {
	return nil, errors.New("not implemented")
}

func newTestJobService(t *testing.T, repo *memJobRepo, gh github.Client, userRepo *memUserRepo, tokens TokenService) JobService {
	t.Helper()
	log, err := logger.New("dev")
	require.NoError(t, err)
	return NewJobService(repo, userRepo, tokens, gh, log)
}

func pushRepo(push bool) *github.Repository {
	r := &github.Repository{FullName: "acme/widget", DefaultBranch: "main"}
	r.Permissions.Push = push
	return r
}

func seedActor(repo *memUserRepo) *uuid.UUID {
	id := uuid.New()
	repo.byID = map[uuid.UUID]*users.User{
		id: {ID: id, GithubID: 7, EncryptedToken: "v1:sealed"},
	}
	return &id
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := newTestJobService(t, newMemJobRepo(), &stubGithub{}, &memUserRepo{}, &stubTokens{})

	_, _, err := svc.Create(context.Background(), "https://gitlab.com/a/b", types.KindDocument, nil)
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, _, err = svc.Create(context.Background(), "https://github.com/a/b", "transcode", nil)
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestCreateReturnsExistingNonFailedJob(t *testing.T) {
	repo := newMemJobRepo()
	svc := newTestJobService(t, repo, &stubGithub{}, &memUserRepo{}, &stubTokens{})

	first, created, err := svc.Create(context.Background(), "https://github.com/acme/widget", types.KindDocument, nil)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Create(context.Background(), "https://github.com/acme/widget", types.KindDocument, nil)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
}

func TestCreateReplacesFailedJob(t *testing.T) {
	repo := newMemJobRepo()
	svc := newTestJobService(t, repo, &stubGithub{}, &memUserRepo{}, &stubTokens{})

	first, _, err := svc.Create(context.Background(), "https://github.com/acme/widget", types.KindDocument, nil)
	require.NoError(t, err)
	repo.rows[first.ID].Status = types.StatusFailed

	second, created, err := svc.Create(context.Background(), "https://github.com/acme/widget", types.KindDocument, nil)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, second.ID)
	_, err = repo.GetByID(dbctx.Context{}, first.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound, "failed duplicate must be deleted")
}

func TestCreateComputesWriteAccessFailClosed(t *testing.T) {
	cases := []struct {
		name   string
		gh     *stubGithub
		tokens *stubTokens
		actor  bool
		want   bool
	}{
		{"push permission", &stubGithub{repo: pushRepo(true)}, &stubTokens{plain: "tok"}, true, true},
		{"read only", &stubGithub{repo: pushRepo(false)}, &stubTokens{plain: "tok"}, true, false},
		{"lookup error", &stubGithub{err: errors.New("403")}, &stubTokens{plain: "tok"}, true, false},
		{"bad credential", &stubGithub{repo: pushRepo(true)}, &stubTokens{err: errors.New("unseal")}, true, false},
		{"anonymous", &stubGithub{repo: pushRepo(true)}, &stubTokens{plain: "tok"}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userRepo := &memUserRepo{}
			var actorID *uuid.UUID
			if tc.actor {
				actorID = seedActor(userRepo)
			}
			svc := newTestJobService(t, newMemJobRepo(), tc.gh, userRepo, tc.tokens)
			job, _, err := svc.Create(context.Background(), "https://github.com/acme/widget", types.KindAnnotate, actorID)
			require.NoError(t, err)
			require.Equal(t, tc.want, job.HasWriteAccess)
		})
	}
}

func TestRetriggerRules(t *testing.T) {
	repo := newMemJobRepo()
	svc := newTestJobService(t, repo, &stubGithub{}, &memUserRepo{}, &stubTokens{})

	job, _, err := svc.Create(context.Background(), "https://github.com/acme/widget", types.KindDocument, nil)
	require.NoError(t, err)

	// Pending may be retriggered.
	got, err := svc.Retrigger(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusPending, got.Status)

	// Completed resets to pending and clears the error remnant.
	repo.rows[job.ID].Status = types.StatusCompleted
	repo.rows[job.ID].ErrorMessage = "old"
	got, err = svc.Retrigger(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusPending, got.Status)
	require.Empty(t, got.ErrorMessage)

	// Processing and failed are rejected.
	repo.rows[job.ID].Status = types.StatusProcessing
	_, err = svc.Retrigger(context.Background(), job.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	repo.rows[job.ID].Status = types.StatusFailed
	_, err = svc.Retrigger(context.Background(), job.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestListValidatesStatus(t *testing.T) {
	svc := newTestJobService(t, newMemJobRepo(), &stubGithub{}, &memUserRepo{}, &stubTokens{})
	_, err := svc.List(context.Background(), "exploded", 10, 0)
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
