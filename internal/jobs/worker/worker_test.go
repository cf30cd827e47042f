package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"

	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/jobs/runtime"
)

type recordingRepo struct {
	mu         sync.Mutex
	heartbeats int
	expired    []uuid.UUID
	failures   int64
	deleted    int64
	calls      []string
}

func (r *recordingRepo) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recordingRepo) Create(dbc dbctx.Context, job *types.Job) (*types.Job, error) {
	return job, nil
}

func (r *recordingRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error) {
	return nil, nil
}

func (r *recordingRepo) GetBySourceURL(dbc dbctx.Context, sourceURL string) (*types.Job, error) {
	return nil, nil
}

func (r *recordingRepo) List(dbc dbctx.Context, status string, limit, offset int) ([]*types.Job, error) {
	return nil, nil
}

func (r *recordingRepo) Delete(dbc dbctx.Context, id uuid.UUID) error { return nil }

func (r *recordingRepo) ClaimNextPending(dbc dbctx.Context, staleProcessing time.Duration) (*types.Job, error) {
	return nil, nil
}

func (r *recordingRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (r *recordingRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	return true, nil
}

func (r *recordingRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heartbeats++
	return nil
}

func (r *recordingRepo) FailStuckProcessing(dbc dbctx.Context, olderThan time.Duration, message string) (int64, error) {
	r.record("fail_stuck")
	return r.failures, nil
}

func (r *recordingRepo) ListTerminalBefore(dbc dbctx.Context, cutoff time.Time) ([]uuid.UUID, error) {
	r.record("list_expired")
	return r.expired, nil
}

func (r *recordingRepo) DeleteTerminalBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	r.record("delete_expired")
	return r.deleted, nil
}

func (r *recordingRepo) heartbeatCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heartbeats
}

type recordingStore struct {
	mu     sync.Mutex
	purged []uuid.UUID
}

func (s *recordingStore) Purge(ctx context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = append(s.purged, jobID)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	require.NoError(t, err)
	return log
}

func TestHeartbeatKeepsClaimFreshDuringLongStep(t *testing.T) {
	repo := &recordingRepo{}
	job := &types.Job{ID: uuid.New(), Kind: types.KindDocument, Status: types.StatusProcessing}
	jc := runtime.NewContext(context.Background(), nil, job, repo, nil)

	stop := startHeartbeat(context.Background(), jc, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for repo.heartbeatCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	stop()
	stop() // stopping twice is fine

	require.GreaterOrEqual(t, repo.heartbeatCount(), 2, "claim must be refreshed while the step runs")

	settled := repo.heartbeatCount()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, settled, repo.heartbeatCount(), "no heartbeats after stop")
}

func TestHeartbeatStopsWhenRunContextEnds(t *testing.T) {
	repo := &recordingRepo{}
	job := &types.Job{ID: uuid.New(), Kind: types.KindAnnotate, Status: types.StatusProcessing}
	ctx, cancel := context.WithCancel(context.Background())
	jc := runtime.NewContext(ctx, nil, job, repo, nil)

	stop := startHeartbeat(ctx, jc, 5*time.Millisecond)
	defer stop()

	cancel()
	time.Sleep(20 * time.Millisecond)
	settled := repo.heartbeatCount()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, settled, repo.heartbeatCount(), "no heartbeats after cancel")
}

func TestSweepPurgesArtifactsBeforeDeletingRows(t *testing.T) {
	expired := []uuid.UUID{uuid.New(), uuid.New()}
	repo := &recordingRepo{expired: expired, deleted: int64(len(expired))}
	store := &recordingStore{}

	s := NewSweeper(testLogger(t), repo, store)
	s.sweep(context.Background())

	require.Equal(t, expired, store.purged)
	require.Equal(t, []string{"fail_stuck", "list_expired", "delete_expired"}, repo.calls)
}

func TestSweepWithoutStoreStillExpiresRows(t *testing.T) {
	repo := &recordingRepo{expired: []uuid.UUID{uuid.New()}, deleted: 1}

	s := NewSweeper(testLogger(t), repo, nil)
	s.sweep(context.Background())

	require.Equal(t, []string{"fail_stuck", "delete_expired"}, repo.calls)
}
