package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/slidesmith/slidesmith-api/internal/api"
	"github.com/slidesmith/slidesmith-api/internal/config"
	"github.com/slidesmith/slidesmith-api/internal/events"
	"github.com/slidesmith/slidesmith-api/internal/pipeline"
	"github.com/slidesmith/slidesmith-api/internal/platform/gemini"
	"github.com/slidesmith/slidesmith-api/internal/platform/mineru"
	"github.com/slidesmith/slidesmith-api/internal/platform/postgres"
	"github.com/slidesmith/slidesmith-api/internal/service"
	"github.com/slidesmith/slidesmith-api/internal/storage"
	"github.com/slidesmith/slidesmith-api/internal/task"
)

// application bundles everything the server needs at runtime: the router
// and the two background runners whose lifecycles serve() manages.
type application struct {
	config         *config.Config
	logger         *slog.Logger
	router         http.Handler
	taskRunner     *task.Runner
	detachedRunner *task.DetachedRunner
}

// newApplication wires the dependency graph: stores over the shared
// connection pool, the providers, the pipelines, the task runners, the
// event plumbing connecting services to the runner, and finally the
// services and HTTP handlers.
func newApplication(cfg *config.Config, db *sql.DB, log *slog.Logger) (*application, error) {
	// Stores
	projectStore := postgres.NewPostgresProjectStore(db, log)
	pageStore := postgres.NewPostgresPageStore(db, log)
	versionStore := postgres.NewPostgresImageVersionStore(db, log)
	materialStore := postgres.NewPostgresMaterialStore(db, log)
	referenceFileStore := postgres.NewPostgresReferenceFileStore(db, log)
	taskStore := postgres.NewPostgresTaskStore(db, log)

	// Artifact storage
	artifacts, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	// External providers
	generator, err := gemini.NewImageProvider(context.Background(), log, cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create image provider: %w", err)
	}
	parser, err := mineru.NewParser(cfg.DocParse, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create document parser: %w", err)
	}

	// Pipelines
	deps := &pipeline.Deps{
		Projects:      projectStore,
		Pages:         pageStore,
		Versions:      versionStore,
		Materials:     materialStore,
		Tasks:         taskStore,
		Artifacts:     artifacts,
		Generator:     generator,
		Parser:        parser,
		Provider:      cfg.Provider,
		ExportWorkers: cfg.Task.ExportWorkerCount,
		Logger:        log,
	}

	// Task runners and the event path from services to the runner
	taskRunner := task.NewRunner(taskStore, task.RunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
	}, log)
	detachedRunner := task.NewDetachedRunner(log)

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(task.NewFactoryEventHandler(taskRunner, deps, taskStore, log))

	// Services
	projectService, err := service.NewProjectService(projectStore, artifacts, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create project service: %w", err)
	}
	pageService, err := service.NewPageService(db, projectStore, pageStore, versionStore, taskStore, emitter, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create page service: %w", err)
	}
	materialService, err := service.NewMaterialService(db, projectStore, materialStore, taskStore, emitter, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create material service: %w", err)
	}
	exportService, err := service.NewExportService(db, projectStore, pageStore, artifacts, deps, taskStore, emitter, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create export service: %w", err)
	}
	referenceFileService, err := service.NewReferenceFileService(referenceFileStore, artifacts, parser, detachedRunner, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create reference file service: %w", err)
	}
	taskService, err := service.NewTaskService(taskStore, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	// Handlers
	projectHandler := api.NewProjectHandler(projectService, log)
	pageHandler := api.NewPageHandler(pageService, log)
	materialHandler := api.NewMaterialHandler(materialService, log)
	exportHandler := api.NewExportHandler(exportService, log)
	referenceFileHandler := api.NewReferenceFileHandler(referenceFileService, log)
	taskHandler := api.NewTaskHandler(taskService, log)

	router := newRouter(routerDeps{
		projects:       projectHandler,
		pages:          pageHandler,
		materials:      materialHandler,
		exports:        exportHandler,
		referenceFiles: referenceFileHandler,
		tasks:          taskHandler,
		artifactRoot:   cfg.Storage.Root,
		publicBaseURL:  cfg.Storage.PublicBaseURL,
	})

	return &application{
		config:         cfg,
		logger:         log,
		router:         router,
		taskRunner:     taskRunner,
		detachedRunner: detachedRunner,
	}, nil
}
