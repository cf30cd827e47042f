// Package pipelines binds the workflow pipelines to the job runtime: each
// handler claims one job kind, resolves the actor's credential, runs the
// step engine, and persists the outcome.
package pipelines

import (
	"errors"

	userrepo "github.com/yungbote/repodoc-backend/internal/data/repos/users"
	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/jobs/runtime"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/services"
	"github.com/yungbote/repodoc-backend/internal/workflow"
)

func dbcOf(jc *runtime.Context) dbctx.Context {
	return dbctx.Context{Ctx: jc.Ctx}
}

// resolveToken loads and unseals the actor's GitHub token. An absent actor
// or an unusable credential downgrades the run to unauthenticated access
// rather than failing it; public repositories still work.
func resolveToken(jc *runtime.Context, users userrepo.UserRepo, tokens services.TokenService, log *logger.Logger) string {
	if jc.Job.ActorID == nil || users == nil || tokens == nil {
		return ""
	}
	user, err := users.GetByID(dbcOf(jc), *jc.Job.ActorID)
	if err != nil || user == nil || user.EncryptedToken == "" {
		return ""
	}
	plain, err := tokens.Decrypt(user.EncryptedToken)
	if err != nil {
		var de *faults.DecryptionError
		if errors.As(err, &de) {
			log.Warn("Stored credential unusable; continuing unauthenticated", "job_id", jc.Job.ID, "actor_id", *jc.Job.ActorID)
			return ""
		}
		return ""
	}
	return plain
}

func newState(jc *runtime.Context, token string) *workflow.State {
	return &workflow.State{
		JobID:          jc.Job.ID,
		SourceURL:      jc.Job.SourceURL,
		Token:          token,
		HasWriteAccess: jc.Job.HasWriteAccess,
	}
}

func runSteps(jc *runtime.Context, steps []workflow.Step, st *workflow.State, log *logger.Logger, result func(st *workflow.State) any) {
	eng := workflow.NewEngine(log)
	eng.OnStep = jc.Progress
	out := eng.Run(jc.Ctx, steps, st)
	if out.Failed {
		jc.Fail(out.Step, out.Err)
		return
	}
	jc.Complete(out.OutputURL, out.PullRequestURL, result(st))
}

// DocumentHandler runs the documentation pipeline for one claimed job.
type DocumentHandler struct {
	users    userrepo.UserRepo
	tokens   services.TokenService
	pipeline *workflow.DocumentPipeline
	log      *logger.Logger
}

func NewDocumentHandler(users userrepo.UserRepo, tokens services.TokenService, pipeline *workflow.DocumentPipeline, baseLog *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		users:    users,
		tokens:   tokens,
		pipeline: pipeline,
		log:      baseLog.With("job_kind", types.KindDocument),
	}
}

func (h *DocumentHandler) Kind() string { return types.KindDocument }

func (h *DocumentHandler) Run(jc *runtime.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	token := resolveToken(jc, h.users, h.tokens, h.log)
	st := newState(jc, token)
	runSteps(jc, h.pipeline.Steps(), st, h.log, func(st *workflow.State) any {
		res := map[string]any{}
		if st.Scan != nil {
			res["stats"] = st.Scan.Stats
		}
		if st.Metadata != nil {
			res["repo"] = st.Metadata
		}
		if st.Analysis != nil {
			res["analysis"] = map[string]any{
				"total":      st.Analysis.Total,
				"successful": st.Analysis.Successful,
				"failed":     st.Analysis.Failed,
			}
		}
		return res
	})
	return nil
}

// AnnotateHandler runs the annotation pipeline for one claimed job.
type AnnotateHandler struct {
	users    userrepo.UserRepo
	tokens   services.TokenService
	pipeline *workflow.AnnotatePipeline
	log      *logger.Logger
}

func NewAnnotateHandler(users userrepo.UserRepo, tokens services.TokenService, pipeline *workflow.AnnotatePipeline, baseLog *logger.Logger) *AnnotateHandler {
	return &AnnotateHandler{
		users:    users,
		tokens:   tokens,
		pipeline: pipeline,
		log:      baseLog.With("job_kind", types.KindAnnotate),
	}
}

func (h *AnnotateHandler) Kind() string { return types.KindAnnotate }

func (h *AnnotateHandler) Run(jc *runtime.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	token := resolveToken(jc, h.users, h.tokens, h.log)
	st := newState(jc, token)
	runSteps(jc, h.pipeline.Steps(), st, h.log, func(st *workflow.State) any {
		files := make([]map[string]any, 0, len(st.Annotated))
		for _, f := range st.Annotated {
			entry := map[string]any{"path": f.Path, "language": f.Language}
			if f.Error != "" {
				entry["error"] = f.Error
			}
			files = append(files, entry)
		}
		res := map[string]any{"files": files}
		if st.Metadata != nil {
			res["repo"] = st.Metadata
		}
		return res
	})
	return nil
}
