package services

import (
	"context"
	"time"

	redisclient "github.com/yungbote/repodoc-backend/internal/clients/redis"
	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

// JobNotifier pushes job lifecycle events to subscribers. Implementations
// must tolerate a missing transport; notification is best-effort and never
// fails a run.
type JobNotifier interface {
	JobProgress(ctx context.Context, job *types.Job, step string)
	JobFailed(ctx context.Context, job *types.Job, step, errMsg string)
	JobDone(ctx context.Context, job *types.Job)
}

type jobNotifier struct {
	bus redisclient.EventBus
	log *logger.Logger
}

// NewJobNotifier wraps the event bus. A nil bus yields a notifier that
// drops every event, which keeps single-process deployments working
// without redis.
func NewJobNotifier(bus redisclient.EventBus, log *logger.Logger) JobNotifier {
	return &jobNotifier{bus: bus, log: log.With("service", "JobNotifier")}
}

func (n *jobNotifier) JobProgress(ctx context.Context, job *types.Job, step string) {
	n.publish(ctx, job, job.Status, step, "")
}

func (n *jobNotifier) JobFailed(ctx context.Context, job *types.Job, step, errMsg string) {
	n.publish(ctx, job, types.StatusFailed, step, errMsg)
}

func (n *jobNotifier) JobDone(ctx context.Context, job *types.Job) {
	n.publish(ctx, job, types.StatusCompleted, job.Step, "")
}

func (n *jobNotifier) publish(ctx context.Context, job *types.Job, status, step, errMsg string) {
	if n.bus == nil || job == nil {
		return
	}
	evt := redisclient.JobEvent{
		JobID:     job.ID.String(),
		Kind:      job.Kind,
		Status:    status,
		Step:      step,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
	if err := n.bus.Publish(ctx, evt); err != nil {
		n.log.Warn("Job event publish failed", "job_id", job.ID, "error", err)
	}
}
