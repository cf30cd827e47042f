package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	httpMW "github.com/yungbote/repodoc-backend/internal/http/middleware"
	"github.com/yungbote/repodoc-backend/internal/http/response"
	"github.com/yungbote/repodoc-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type createJobRequest struct {
	SourceURL string `json:"source_url" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
}

// POST /api/v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, created, err := h.jobs.Create(c.Request.Context(), req.SourceURL, req.Kind, httpMW.ActorID(c))
	if err != nil {
		response.RespondAppError(c, "create_job_failed", err)
		return
	}
	if created {
		response.RespondCreated(c, gin.H{"job": job})
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
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
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/v1/jobs?status=&limit=&offset=
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit := atoiOr(c.Query("limit"), 50)
	offset := atoiOr(c.Query("offset"), 0)
	jobsList, err := h.jobs.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		response.RespondAppError(c, "list_jobs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobsList, "count": len(jobsList)})
}

// POST /api/v1/jobs/:id/retrigger
func (h *JobHandler) RetriggerJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Retrigger(c.Request.Context(), jobID)
	if err != nil {
		response.RespondAppError(c, "retrigger_job_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

func atoiOr(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
