// Package worker drives the database-backed queue: a pool of loops claims
// pending jobs with SKIP LOCKED and dispatches them to registered handlers,
// while a sweeper reaps runs that died mid-flight and expires old rows.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	jobrepo "github.com/yungbote/repodoc-backend/internal/data/repos/jobs"
	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/jobs/runtime"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/envutil"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/services"
)

const (
	pollInterval = 1 * time.Second

	// staleProcessing is how long a processing row may go without a
	// heartbeat before another worker may reclaim it.
	staleProcessing = 10 * time.Minute

	// heartbeatInterval keeps a live run's claim fresh. Must be well under
	// staleProcessing or a slow step (one LLM call can block for many
	// minutes) gets its job reclaimed mid-run.
	heartbeatInterval = 2 * time.Minute

	// runTimeout caps one run. Under the stuck-processing ceiling so a
	// hung run cancels itself before the sweeper declares it dead.
	runTimeout = 55 * time.Minute
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     jobrepo.JobRepo
	registry *runtime.Registry
	notify   services.JobNotifier
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo jobrepo.JobRepo, registry *runtime.Registry, notify services.JobNotifier) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting job worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextPending(dbctx.Context{Ctx: ctx}, staleProcessing)
			if err != nil {
				w.log.Warn("Claim failed", "worker_id", workerID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.runOne(ctx, workerID, job)
		}
	}
}

func (w *Worker) runOne(ctx context.Context, workerID int, job *types.Job) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	runCtx, span := otel.Tracer("repodoc-backend/worker").Start(runCtx, "job.run",
		trace.WithAttributes(
			attribute.String("job.id", job.ID.String()),
			attribute.String("job.kind", job.Kind),
		))
	defer span.End()

	jc := runtime.NewContext(runCtx, w.db, job, w.repo, w.notify)
	stopBeat := startHeartbeat(runCtx, jc, heartbeatInterval)
	defer stopBeat()

	h, ok := w.registry.Get(job.Kind)
	if !ok {
		w.log.Warn("No handler registered for kind", "worker_id", workerID, "kind", job.Kind, "job_id", job.ID)
		jc.Fail("dispatch", &missingHandlerError{Kind: job.Kind})
		return
	}

	w.log.Info("Running job", "worker_id", workerID, "job_id", job.ID, "kind", job.Kind)
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic", "worker_id", workerID, "job_id", job.ID, "kind", job.Kind, "panic", r)
			jc.Fail("panic", errFromRecover(r))
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		// Handlers terminate their own jobs; this is a safety net.
		jc.Fail("run", runErr)
	}
}

// startHeartbeat refreshes the job's claim on a ticker for as long as the
// run lasts, so a step that legitimately outlives the reclaim window is
// not picked up by a second worker. The returned func stops the ticker.
func startHeartbeat(ctx context.Context, jc *runtime.Context, interval time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				jc.Heartbeat()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

type missingHandlerError struct{ Kind string }

func (e *missingHandlerError) Error() string { return "no handler registered for kind=" + e.Kind }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Val) }
