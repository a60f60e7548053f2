package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/generation"
	"github.com/slidesmith/slidesmith-api/internal/storage"
	"github.com/slidesmith/slidesmith-api/internal/store"
	"github.com/slidesmith/slidesmith-api/internal/task"
)

// referenceCategory is the artifact category uploaded reference documents
// are stored under.
const referenceCategory = "references"

// globalScope is the artifact path segment used for reference files not
// attached to a project.
const globalScope = "global"

// ReferenceFileService manages uploaded reference documents and their parse
// lifecycle. Parsing runs as a detached job per file, never through the task
// runner: each file carries its own state machine
// (pending -> parsing -> completed/failed) and at most one parse per file is
// in flight at a time.
type ReferenceFileService interface {
	// UploadReferenceFile stores the document, registers it pending, and
	// starts its parse. A nil projectID uploads a global file.
	UploadReferenceFile(ctx context.Context, projectID *uuid.UUID, filename string, data []byte) (*domain.ReferenceFile, error)

	// GetReferenceFile retrieves a reference file by ID.
	GetReferenceFile(ctx context.Context, id uuid.UUID) (*domain.ReferenceFile, error)

	// ListReferenceFiles returns the files attached to a project, or global
	// files when projectID is nil.
	ListReferenceFiles(ctx context.Context, projectID *uuid.UUID) ([]*domain.ReferenceFile, error)

	// ReparseReferenceFile clears a finished parse and runs it again.
	// Returns ErrParseInProgress while a parse is active.
	ReparseReferenceFile(ctx context.Context, id uuid.UUID) (*domain.ReferenceFile, error)

	// DeleteReferenceFile removes a reference file. Returns
	// ErrParseInProgress while a parse is active.
	DeleteReferenceFile(ctx context.Context, id uuid.UUID) error
}

type referenceFileService struct {
	files     store.ReferenceFileStore
	artifacts storage.ArtifactStore
	parser    generation.DocumentParser
	runner    *task.DetachedRunner
	logger    *slog.Logger
}

// NewReferenceFileService creates a new ReferenceFileService.
func NewReferenceFileService(
	files store.ReferenceFileStore,
	artifacts storage.ArtifactStore,
	parser generation.DocumentParser,
	runner *task.DetachedRunner,
	logger *slog.Logger,
) (ReferenceFileService, error) {
	if files == nil {
		return nil, fmt.Errorf("reference file store cannot be nil")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact store cannot be nil")
	}
	if parser == nil {
		return nil, fmt.Errorf("document parser cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("detached runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &referenceFileService{
		files:     files,
		artifacts: artifacts,
		parser:    parser,
		runner:    runner,
		logger:    logger.With(slog.String("component", "reference_file_service")),
	}, nil
}

func (s *referenceFileService) UploadReferenceFile(ctx context.Context, projectID *uuid.UUID, filename string, data []byte) (*domain.ReferenceFile, error) {
	scope := globalScope
	if projectID != nil {
		scope = projectID.String()
	}

	path, err := s.artifacts.Save(ctx, scope, referenceCategory, filename, data)
	if err != nil {
		return nil, newServiceError("upload_reference", "failed to store document", err)
	}

	file, err := domain.NewReferenceFile(projectID, filename, path)
	if err != nil {
		return nil, newServiceError("upload_reference", "invalid reference file", err)
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, newServiceError("upload_reference", "failed to save reference file", err)
	}

	s.startParse(file)
	return file, nil
}

func (s *referenceFileService) GetReferenceFile(ctx context.Context, id uuid.UUID) (*domain.ReferenceFile, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("get_reference", "failed to load reference file", err)
	}
	return file, nil
}

func (s *referenceFileService) ListReferenceFiles(ctx context.Context, projectID *uuid.UUID) ([]*domain.ReferenceFile, error) {
	files, err := s.files.ListByProject(ctx, projectID)
	if err != nil {
		return nil, newServiceError("list_references", "failed to list reference files", err)
	}
	return files, nil
}

func (s *referenceFileService) ReparseReferenceFile(ctx context.Context, id uuid.UUID) (*domain.ReferenceFile, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("reparse_reference", "failed to load reference file", err)
	}

	// The runner's in-flight map is the authoritative guard; the status
	// check additionally covers a parsing row left by a dead process.
	if s.runner.IsRunning(file.ID) {
		return nil, ErrParseInProgress
	}
	if err := file.ResetForReparse(); err != nil {
		if errors.Is(err, domain.ErrParseInProgress) {
			return nil, ErrParseInProgress
		}
		return nil, newServiceError("reparse_reference", "failed to reset reference file", err)
	}

	if err := s.files.Update(ctx, file); err != nil {
		return nil, newServiceError("reparse_reference", "failed to save reference file", err)
	}

	s.startParse(file)
	return file, nil
}

func (s *referenceFileService) DeleteReferenceFile(ctx context.Context, id uuid.UUID) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return newServiceError("delete_reference", "failed to load reference file", err)
	}
	if s.runner.IsRunning(file.ID) || file.ParseStatus == domain.ParseStatusParsing {
		return ErrParseInProgress
	}

	if err := s.files.Delete(ctx, id); err != nil {
		return newServiceError("delete_reference", "failed to delete reference file", err)
	}
	return nil
}

// startParse launches the detached parse job for the file. A launch failure
// leaves the file pending; a later reparse retries it.
func (s *referenceFileService) startParse(file *domain.ReferenceFile) {
	fileID := file.ID
	if err := s.runner.Launch(fileID, func(ctx context.Context) {
		s.runParse(ctx, fileID)
	}); err != nil {
		s.logger.Warn("could not start parse job",
			slog.String("file_id", fileID.String()),
			slog.String("error", err.Error()))
	}
}

// runParse is the detached job body: it walks the file through
// parsing -> completed/failed, persisting each transition.
func (s *referenceFileService) runParse(ctx context.Context, fileID uuid.UUID) {
	log := s.logger.With(slog.String("file_id", fileID.String()))

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		log.Error("parse job could not load file", slog.String("error", err.Error()))
		return
	}

	file.ParseStatus = domain.ParseStatusParsing
	file.UpdatedAt = time.Now().UTC()
	if err := s.files.Update(ctx, file); err != nil {
		log.Error("parse job could not mark file parsing", slog.String("error", err.Error()))
		return
	}

	data, err := s.artifacts.Read(ctx, file.StoredPath)
	if err != nil {
		s.finishParse(ctx, file, "", fmt.Errorf("failed to read stored document: %w", err))
		return
	}

	result, err := s.parser.ParseDocument(ctx, file.Filename, data)
	if err != nil {
		s.finishParse(ctx, file, "", err)
		return
	}

	s.finishParse(ctx, file, result.Markdown, nil)
}

// finishParse records the parse outcome. The job always reaches a terminal
// parse status, even on failure, so a file never sticks in parsing while no
// job is in flight.
func (s *referenceFileService) finishParse(ctx context.Context, file *domain.ReferenceFile, markdown string, parseErr error) {
	log := s.logger.With(slog.String("file_id", file.ID.String()))

	if parseErr != nil {
		file.ParseStatus = domain.ParseStatusFailed
		file.ErrorMessage = parseErr.Error()
		file.MarkdownContent = ""
		log.Warn("parse failed", slog.String("error", parseErr.Error()))
	} else {
		file.ParseStatus = domain.ParseStatusCompleted
		file.MarkdownContent = markdown
		file.ErrorMessage = ""
		log.Debug("parse completed", slog.Int("markdown_bytes", len(markdown)))
	}
	file.UpdatedAt = time.Now().UTC()

	if err := s.files.Update(ctx, file); err != nil {
		log.Error("failed to save parse outcome", slog.String("error", err.Error()))
	}
}
