package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/http/response"
	"github.com/yungbote/repodoc-backend/internal/pkg/apperr"
	"github.com/yungbote/repodoc-backend/internal/publish"
	"github.com/yungbote/repodoc-backend/internal/services"
)

// ArtifactHandler streams stored run output back to the caller, proxying
// the artifact store so the bucket never has to be public.
type ArtifactHandler struct {
	jobs  services.JobService
	store publish.ArtifactStore
}

func NewArtifactHandler(jobs services.JobService, store publish.ArtifactStore) *ArtifactHandler {
	return &ArtifactHandler{jobs: jobs, store: store}
}

// GET /api/v1/jobs/:id/documentation
func (h *ArtifactHandler) GetDocumentation(c *gin.Context) {
	h.stream(c, publish.KindDocumentation, "text/markdown; charset=utf-8")
}

// GET /api/v1/jobs/:id/commented
func (h *ArtifactHandler) GetCommented(c *gin.Context) {
	h.stream(c, publish.KindAnnotations, "application/json")
}

func (h *ArtifactHandler) stream(c *gin.Context, kind, contentType string) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		response.RespondAppError(c, "job_not_found", err)
		return
	}
	if job.Status != types.StatusCompleted {
		response.RespondError(c, http.StatusConflict, "job_not_completed", apperr.ErrConflict)
		return
	}
	rc, err := h.store.Fetch(c.Request.Context(), kind, jobID)
	if err != nil {
		response.RespondAppError(c, "artifact_fetch_failed", err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
