package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	jobrepo "github.com/yungbote/repodoc-backend/internal/data/repos/jobs"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/envutil"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

const stuckRunMessage = "run exceeded time ceiling"

// ArtifactPurger is the slice of the artifact store the sweeper needs.
type ArtifactPurger interface {
	Purge(ctx context.Context, jobID uuid.UUID) error
}

// Sweeper reconciles rows the workers can no longer help: processing jobs
// whose run died without a terminal write get failed, and terminal rows
// past the retention window get their artifacts purged and the rows
// deleted.
type Sweeper struct {
	log   *logger.Logger
	repo  jobrepo.JobRepo
	store ArtifactPurger

	interval  time.Duration
	stuckAge  time.Duration
	retention time.Duration
}

func NewSweeper(baseLog *logger.Logger, repo jobrepo.JobRepo, store ArtifactPurger) *Sweeper {
	return &Sweeper{
		log:       baseLog.With("component", "JobSweeper"),
		repo:      repo,
		store:     store,
		interval:  envutil.Duration("SWEEP_INTERVAL", 5*time.Minute),
		stuckAge:  envutil.Duration("SWEEP_STUCK_PROCESSING_AGE", 1*time.Hour),
		retention: envutil.Duration("SWEEP_RETENTION", 30*24*time.Hour),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info("Starting job sweeper", "interval", s.interval, "stuck_age", s.stuckAge, "retention", s.retention)
	go s.loop(ctx)
}

func (s *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	dbc := dbctx.Context{Ctx: ctx}

	failed, err := s.repo.FailStuckProcessing(dbc, s.stuckAge, stuckRunMessage)
	if err != nil {
		s.log.Warn("Stuck-processing sweep failed", "error", err)
	} else if failed > 0 {
		s.log.Info("Failed stuck processing jobs", "count", failed)
	}

	cutoff := time.Now().Add(-s.retention)
	if s.store != nil {
		ids, err := s.repo.ListTerminalBefore(dbc, cutoff)
		if err != nil {
			s.log.Warn("Listing expired jobs failed", "error", err)
		}
		for _, id := range ids {
			if err := s.store.Purge(ctx, id); err != nil {
				s.log.Warn("Artifact purge failed", "job_id", id, "error", err)
			}
		}
	}

	deleted, err := s.repo.DeleteTerminalBefore(dbc, cutoff)
	if err != nil {
		s.log.Warn("Retention sweep failed", "error", err)
	} else if deleted > 0 {
		s.log.Info("Deleted expired jobs", "count", deleted)
	}
}
