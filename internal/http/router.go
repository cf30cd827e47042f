package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/repodoc-backend/internal/http/handlers"
	httpMW "github.com/yungbote/repodoc-backend/internal/http/middleware"
)

type RouterConfig struct {
	AuthMiddleware  *httpMW.AuthMiddleware
	UserHandler     *httpH.UserHandler
	JobHandler      *httpH.JobHandler
	ArtifactHandler *httpH.ArtifactHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())
	r.Use(otelgin.Middleware("repodoc-backend"))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/v1")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.OptionalAuth())
	}

	if cfg.UserHandler != nil {
		api.POST("/users/token", cfg.UserHandler.RegisterToken)
	}

	if cfg.JobHandler != nil {
		api.POST("/jobs", cfg.JobHandler.CreateJob)
		api.GET("/jobs", cfg.JobHandler.ListJobs)
		api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		api.POST("/jobs/:id/retrigger", cfg.JobHandler.RetriggerJob)
	}

	if cfg.ArtifactHandler != nil {
		api.GET("/jobs/:id/documentation", cfg.ArtifactHandler.GetDocumentation)
		api.GET("/jobs/:id/commented", cfg.ArtifactHandler.GetCommented)
	}

	return r
}
