package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/events"
	"github.com/slidesmith/slidesmith-api/internal/pipeline"
	"github.com/slidesmith/slidesmith-api/internal/storage"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// ExportResult identifies a produced export artifact.
type ExportResult struct {
	// Path is the stored artifact path.
	Path string `json:"path"`
	// URL is the public URL clients download the artifact from.
	URL string `json:"url"`
}

// ExportService provides deck export operations. PDF and flat PPTX exports
// run synchronously in the request; the editable PPTX rebuild goes through
// the external parse service and runs as a background task.
type ExportService interface {
	// ExportPDF renders the deck as a PDF, one full-bleed page per slide.
	ExportPDF(ctx context.Context, projectID uuid.UUID) (*ExportResult, error)

	// ExportPPTX renders the deck as a flat image-per-slide presentation.
	ExportPPTX(ctx context.Context, projectID uuid.UUID) (*ExportResult, error)

	// CreateEditableExport starts the background editable-deck rebuild.
	// Returns ErrNoGeneratedImages without creating a task when no page has
	// a generated image.
	CreateEditableExport(ctx context.Context, projectID uuid.UUID) (*domain.TaskRecord, error)
}

type exportService struct {
	projects  store.ProjectStore
	pages     store.PageStore
	artifacts storage.ArtifactStore
	deps      *pipeline.Deps
	creator   *taskCreator
	logger    *slog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(
	db *sql.DB,
	projects store.ProjectStore,
	pages store.PageStore,
	artifacts storage.ArtifactStore,
	deps *pipeline.Deps,
	tasks store.TaskStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (ExportService, error) {
	if projects == nil {
		return nil, fmt.Errorf("project store cannot be nil")
	}
	if pages == nil {
		return nil, fmt.Errorf("page store cannot be nil")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact store cannot be nil")
	}
	if deps == nil {
		return nil, fmt.Errorf("pipeline deps cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "export_service"))

	creator, err := newTaskCreator(db, tasks, emitter, logger)
	if err != nil {
		return nil, err
	}

	return &exportService{
		projects:  projects,
		pages:     pages,
		artifacts: artifacts,
		deps:      deps,
		creator:   creator,
		logger:    logger,
	}, nil
}

func (s *exportService) ExportPDF(ctx context.Context, projectID uuid.UUID) (*ExportResult, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, newServiceError("export_pdf", "failed to load project", err)
	}

	path, err := s.deps.ExportPDF(ctx, projectID, exportFilename("deck", "pdf"))
	if err != nil {
		if errors.Is(err, pipeline.ErrNoGeneratedImages) {
			return nil, ErrNoGeneratedImages
		}
		return nil, newServiceError("export_pdf", "failed to build pdf", err)
	}

	return &ExportResult{Path: path, URL: s.artifacts.URLFor(path)}, nil
}

func (s *exportService) ExportPPTX(ctx context.Context, projectID uuid.UUID) (*ExportResult, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, newServiceError("export_pptx", "failed to load project", err)
	}

	path, err := s.deps.ExportPPTX(ctx, projectID, exportFilename("deck", "pptx"))
	if err != nil {
		if errors.Is(err, pipeline.ErrNoGeneratedImages) {
			return nil, ErrNoGeneratedImages
		}
		return nil, newServiceError("export_pptx", "failed to build pptx", err)
	}

	return &ExportResult{Path: path, URL: s.artifacts.URLFor(path)}, nil
}

func (s *exportService) CreateEditableExport(ctx context.Context, projectID uuid.UUID) (*domain.TaskRecord, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, newServiceError("create_editable_export", "failed to load project", err)
	}

	pages, err := s.pages.ListByProject(ctx, projectID)
	if err != nil {
		return nil, newServiceError("create_editable_export", "failed to list pages", err)
	}
	imageCount := 0
	for _, page := range pages {
		if page.HasGeneratedImage() {
			imageCount++
		}
	}
	if imageCount == 0 {
		return nil, ErrNoGeneratedImages
	}

	record, err := s.creator.create(ctx, projectID, domain.TaskKindExportEditableDeck, imageCount,
		pipeline.ExportEditableDeckInput{
			ProjectID: projectID,
			Filename:  exportFilename("deck_editable", "pptx"),
		})
	if err != nil {
		return nil, newServiceError("create_editable_export", "failed to start task", err)
	}
	return record, nil
}

// exportFilename produces a timestamped artifact filename so repeated
// exports never overwrite each other.
func exportFilename(stem, ext string) string {
	return fmt.Sprintf("%s_%d.%s", stem, time.Now().UnixNano(), ext)
}
