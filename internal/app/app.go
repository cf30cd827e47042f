// Package app wires the whole process: storage, clients, services, the job
// worker pool, and the HTTP surface.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/repodoc-backend/internal/clients/anthropic"
	"github.com/yungbote/repodoc-backend/internal/clients/gcp"
	"github.com/yungbote/repodoc-backend/internal/clients/github"
	redisclient "github.com/yungbote/repodoc-backend/internal/clients/redis"
	jobrepo "github.com/yungbote/repodoc-backend/internal/data/repos/jobs"
	userrepo "github.com/yungbote/repodoc-backend/internal/data/repos/users"
	"github.com/yungbote/repodoc-backend/internal/db"
	"github.com/yungbote/repodoc-backend/internal/docgen"
	httpserver "github.com/yungbote/repodoc-backend/internal/http"
	httpH "github.com/yungbote/repodoc-backend/internal/http/handlers"
	httpMW "github.com/yungbote/repodoc-backend/internal/http/middleware"
	pipelines "github.com/yungbote/repodoc-backend/internal/jobs/pipeline"
	"github.com/yungbote/repodoc-backend/internal/jobs/runtime"
	"github.com/yungbote/repodoc-backend/internal/jobs/worker"
	"github.com/yungbote/repodoc-backend/internal/observability"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/publish"
	"github.com/yungbote/repodoc-backend/internal/services"
	"github.com/yungbote/repodoc-backend/internal/workflow"
	"github.com/yungbote/repodoc-backend/internal/workspace"
)

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Server *httpserver.Server
	Cfg    Config

	worker  *worker.Worker
	sweeper *worker.Sweeper
	bus     redisclient.EventBus

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.Init(context.Background(), log, observability.Config{
		ServiceName: "repodoc-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	// Repos
	jobs := jobrepo.NewJobRepo(theDB, log)
	users := userrepo.NewUserRepo(theDB, log)

	// Clients. The bucket and event bus degrade to nil: runs still work,
	// artifacts stay on the local tier and live events are skipped.
	ai, err := anthropic.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init anthropic client: %w", err)
	}
	gh, err := github.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init github client: %w", err)
	}
	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		log.Warn("Bucket service unavailable; artifacts limited to the local tier", "error", err)
		bucket = nil
	}
	bus, err := redisclient.NewEventBus(log)
	if err != nil {
		log.Warn("Event bus unavailable; job events disabled", "error", err)
		bus = nil
	}

	// Services
	tokens, err := services.NewTokenService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init token service: %w", err)
	}
	notify := services.NewJobNotifier(bus, log)
	jobService := services.NewJobService(jobs, users, tokens, gh, log)
	userService := services.NewUserService(users, tokens, gh, log)

	// Pipeline components
	fetcher := workspace.NewFetcher(log)
	generator := docgen.NewGenerator(ai, log)
	artifacts := publish.NewArtifactStore(bucket, log)
	prs := publish.NewPullRequestPublisher(gh, log)

	registry := runtime.NewRegistry()
	docPipeline := workflow.NewDocumentPipeline(fetcher, generator, artifacts, log)
	annPipeline := workflow.NewAnnotatePipeline(fetcher, generator, artifacts, prs, log)
	if err := registry.Register(pipelines.NewDocumentHandler(users, tokens, docPipeline, log)); err != nil {
		log.Sync()
		return nil, err
	}
	if err := registry.Register(pipelines.NewAnnotateHandler(users, tokens, annPipeline, log)); err != nil {
		log.Sync()
		return nil, err
	}

	// HTTP surface
	authMW := httpMW.NewAuthMiddleware(log, userService)
	server := httpserver.NewServer(httpserver.RouterConfig{
		AuthMiddleware:  authMW,
		UserHandler:     httpH.NewUserHandler(userService),
		JobHandler:      httpH.NewJobHandler(jobService),
		ArtifactHandler: httpH.NewArtifactHandler(jobService, artifacts),
		HealthHandler:   httpH.NewHealthHandler(),
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		worker:       worker.NewWorker(theDB, log, jobs, registry, notify),
		sweeper:      worker.NewSweeper(log, jobs, artifacts),
		bus:          bus,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background loops: the worker pool and the sweeper.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.worker.Start(ctx)
	a.sweeper.Start(ctx)
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return a.Server.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
