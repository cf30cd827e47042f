// Package runtime is the execution contract between the worker and the
// pipelines. A runtime.Context wraps one claimed job row plus the only
// sanctioned ways to report progress or terminate the run; pipelines never
// write the job table directly.
package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobrepo "github.com/yungbote/repodoc-backend/internal/data/repos/jobs"
	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/services"
)

// terminalStatuses guards every transition: once a row is completed or
// failed, no run may overwrite it.
var terminalStatuses = []string{types.StatusCompleted, types.StatusFailed}

type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.Job
	Repo   jobrepo.JobRepo
	Notify services.JobNotifier
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.Job, repo jobrepo.JobRepo, notify services.JobNotifier) *Context {
	return &Context{Ctx: ctx, DB: db, Job: job, Repo: repo, Notify: notify}
}

// Progress persists the current step and refreshes the heartbeat so the
// claim stays fresh, then emits a progress event. Rejected writes (row
// already terminal) are silent; the run will notice on its own terminal
// transition.
func (c *Context) Progress(step string) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now()
	if c.Repo != nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, terminalStatuses, map[string]interface{}{
			"step":         step,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}
	c.Job.Step = step
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobProgress(c.ctx(), c.Job, step)
	}
}

// Heartbeat refreshes the claim without changing the step.
func (c *Context) Heartbeat() {
	if c == nil || c.Job == nil || c.Repo == nil || c.Job.ID == uuid.Nil {
		return
	}
	_ = c.Repo.Heartbeat(c.dbc(), c.Job.ID)
}

// Fail marks the run terminally failed, recording the step that broke and
// releasing the claim.
func (c *Context) Fail(step string, err error) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	now := time.Now()
	if c.Repo != nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, terminalStatuses, map[string]interface{}{
			"status":        types.StatusFailed,
			"step":          step,
			"error_message": msg,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if !ok {
			return
		}
	}
	c.Job.Status = types.StatusFailed
	c.Job.Step = step
	c.Job.ErrorMessage = msg
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobFailed(c.ctx(), c.Job, step, msg)
	}
}

// Complete marks the run terminally completed, persisting where the output
// landed. Any stale error message from a previous life of the row is
// cleared. The result payload is serialized into the jsonb column.
func (c *Context) Complete(outputURL, pullRequestURL string, result any) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	now := time.Now()
	if c.Repo != nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, terminalStatuses, map[string]interface{}{
			"status":           types.StatusCompleted,
			"step":             "done",
			"error_message":    "",
			"output_url":       outputURL,
			"pull_request_url": pullRequestURL,
			"result":           res,
			"locked_at":        nil,
			"heartbeat_at":     now,
			"updated_at":       now,
		})
		if !ok {
			return
		}
	}
	c.Job.Status = types.StatusCompleted
	c.Job.Step = "done"
	c.Job.ErrorMessage = ""
	c.Job.OutputURL = outputURL
	c.Job.PullRequestURL = pullRequestURL
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobDone(c.ctx(), c.Job)
	}
}

func (c *Context) dbc() dbctx.Context {
	return dbctx.Context{Ctx: c.ctx()}
}

func (c *Context) ctx() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}
