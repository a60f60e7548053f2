package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/events"
	"github.com/slidesmith/slidesmith-api/internal/pipeline"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// GenerateImageOptions tunes a page image generation request.
type GenerateImageOptions struct {
	// UseTemplate attaches the project's template image as a style
	// reference, when one is uploaded.
	UseTemplate bool

	// Language overrides the configured output language when non-empty.
	Language string
}

// EditImageRequest describes an instruction-driven edit of a page's current
// image.
type EditImageRequest struct {
	Instruction   string
	UseTemplate   bool
	ReferenceURLs []string
	UploadedPaths []string
}

// PageService provides page-related operations, including the asynchronous
// image generation and edit entry points.
//
// Generation and edit requests validate their prerequisites synchronously
// and return a sentinel error without creating a task when they fail; only a
// valid request produces a pending task record and a 202-style response.
type PageService interface {
	// CreatePage inserts a draft page at the given position, shifting later
	// pages down.
	CreatePage(ctx context.Context, projectID uuid.UUID, orderIndex int, part string) (*domain.Page, error)

	// GetPage retrieves a page, checking it belongs to the project.
	GetPage(ctx context.Context, projectID, pageID uuid.UUID) (*domain.Page, error)

	// ListPages returns the project's pages in order.
	ListPages(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error)

	// UpdateOutline replaces the page's outline content and part label.
	UpdateOutline(ctx context.Context, projectID, pageID uuid.UUID, part string, outline *domain.PageOutline) (*domain.Page, error)

	// UpdateDescription replaces the page's visual description, moving a
	// draft page to description_generated.
	UpdateDescription(ctx context.Context, projectID, pageID uuid.UUID, text string) (*domain.Page, error)

	// DeletePage removes a page and its image versions.
	DeletePage(ctx context.Context, projectID, pageID uuid.UUID) error

	// GeneratePageImage starts a background generation task for a page with
	// a description. Returns ErrPageNotReady without creating a task when
	// the page has none.
	GeneratePageImage(ctx context.Context, projectID, pageID uuid.UUID, opts GenerateImageOptions) (*domain.TaskRecord, error)

	// EditPageImage starts a background edit task against the page's current
	// image. Returns ErrPageImageMissing without creating a task when the
	// page has no image, ErrEmptyInstruction when the instruction is blank.
	EditPageImage(ctx context.Context, projectID, pageID uuid.UUID, req EditImageRequest) (*domain.TaskRecord, error)

	// ListImageVersions returns the page's version ledger, newest first.
	ListImageVersions(ctx context.Context, projectID, pageID uuid.UUID) ([]*domain.PageImageVersion, error)

	// SetCurrentVersion promotes an earlier version back to current.
	// Idempotent when the version is already current.
	SetCurrentVersion(ctx context.Context, projectID, pageID, versionID uuid.UUID) (*domain.PageImageVersion, error)
}

type pageService struct {
	db       *sql.DB
	projects store.ProjectStore
	pages    store.PageStore
	versions store.ImageVersionStore
	creator  *taskCreator
	logger   *slog.Logger
}

// NewPageService creates a new PageService.
func NewPageService(
	db *sql.DB,
	projects store.ProjectStore,
	pages store.PageStore,
	versions store.ImageVersionStore,
	tasks store.TaskStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (PageService, error) {
	if projects == nil {
		return nil, fmt.Errorf("project store cannot be nil")
	}
	if pages == nil {
		return nil, fmt.Errorf("page store cannot be nil")
	}
	if versions == nil {
		return nil, fmt.Errorf("version store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "page_service"))

	creator, err := newTaskCreator(db, tasks, emitter, logger)
	if err != nil {
		return nil, err
	}

	return &pageService{
		db:       db,
		projects: projects,
		pages:    pages,
		versions: versions,
		creator:  creator,
		logger:   logger,
	}, nil
}

func (s *pageService) CreatePage(ctx context.Context, projectID uuid.UUID, orderIndex int, part string) (*domain.Page, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, newServiceError("create_page", "failed to load project", err)
	}

	page, err := domain.NewPage(projectID, orderIndex, part)
	if err != nil {
		return nil, newServiceError("create_page", "invalid page", err)
	}

	// Shift and insert in one transaction so concurrent inserts cannot
	// interleave and produce duplicate positions.
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txPages := s.pages.WithTx(tx)
		if err := txPages.ShiftOrderFrom(ctx, projectID, orderIndex); err != nil {
			return err
		}
		return txPages.Create(ctx, page)
	})
	if err != nil {
		return nil, newServiceError("create_page", "failed to save page", err)
	}

	return page, nil
}

// loadOwnedPage fetches a page and verifies project ownership. A page that
// exists under a different project is reported as not found rather than
// leaking its existence.
func (s *pageService) loadOwnedPage(ctx context.Context, projectID, pageID uuid.UUID) (*domain.Page, error) {
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page.ProjectID != projectID {
		return nil, ErrPageNotFound
	}
	return page, nil
}

func (s *pageService) GetPage(ctx context.Context, projectID, pageID uuid.UUID) (*domain.Page, error) {
	page, err := s.loadOwnedPage(ctx, projectID, pageID)
	if err != nil {
		return nil, newServiceError("get_page", "failed to load page", err)
	}
	return page, nil
}

func (s *pageService) ListPages(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, newServiceError("list_pages", "failed to load project", err)
	}
	pages, err := s.pages.ListByProject(ctx, projectID)
	if err != nil {
		return nil, newServiceError("list_pages", "failed to list pages", err)
	}
	return pages, nil
}

func (s *pageService) UpdateOutline(ctx context.Context, projectID, pageID uuid.UUID, part string, outline *domain.PageOutline) (*domain.Page, error) {
	page, err := s.loadOwnedPage(ctx, projectID, pageID)
	if err != nil {
		return nil, newServiceError("update_outline", "failed to load page", err)
	}

	page.Part = part
	page.Outline = outline
	page.UpdatedAt = time.Now().UTC()

	if err := s.pages.Update(ctx, page); err != nil {
		return nil, newServiceError("update_outline", "failed to save page", err)
	}
	return page, nil
}

func (s *pageService) UpdateDescription(ctx context.Context, projectID, pageID uuid.UUID, text string) (*domain.Page, error) {
	page, err := s.loadOwnedPage(ctx, projectID, pageID)
	if err != nil {
		return nil, newServiceError("update_description", "failed to load page", err)
	}

	page.Description = &domain.PageDescription{
		Text:        text,
		GeneratedAt: time.Now().UTC(),
	}
	if page.Status == domain.PageStatusDraft {
		page.Status = domain.PageStatusDescriptionGenerated
	}
	page.UpdatedAt = time.Now().UTC()

	if err := s.pages.Update(ctx, page); err != nil {
		return nil, newServiceError("update_description", "failed to save page", err)
	}
	return page, nil
}

func (s *pageService) DeletePage(ctx context.Context, projectID, pageID uuid.UUID) error {
	if _, err := s.loadOwnedPage(ctx, projectID, pageID); err != nil {
		return newServiceError("delete_page", "failed to load page", err)
	}
	if err := s.pages.Delete(ctx, pageID); err != nil {
		return newServiceError("delete_page", "failed to delete page", err)
	}
	return nil
}

func (s *pageService) GeneratePageImage(ctx context.Context, projectID, pageID uuid.UUID, opts GenerateImageOptions) (*domain.TaskRecord, error) {
	page, err := s.loadOwnedPage(ctx, projectID, pageID)
	if err != nil {
		return nil, newServiceError("generate_page_image", "failed to load page", err)
	}
	if !page.HasDescription() {
		return nil, ErrPageNotReady
	}

	record, err := s.creator.create(ctx, projectID, domain.TaskKindGeneratePageImage, 1,
		pipeline.GeneratePageImageInput{
			ProjectID:   projectID,
			PageID:      pageID,
			UseTemplate: opts.UseTemplate,
			Language:    opts.Language,
		})
	if err != nil {
		return nil, newServiceError("generate_page_image", "failed to start task", err)
	}
	return record, nil
}

func (s *pageService) EditPageImage(ctx context.Context, projectID, pageID uuid.UUID, req EditImageRequest) (*domain.TaskRecord, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, ErrEmptyInstruction
	}

	page, err := s.loadOwnedPage(ctx, projectID, pageID)
	if err != nil {
		return nil, newServiceError("edit_page_image", "failed to load page", err)
	}
	if !page.HasGeneratedImage() {
		return nil, ErrPageImageMissing
	}

	record, err := s.creator.create(ctx, projectID, domain.TaskKindEditPageImage, 1,
		pipeline.EditPageImageInput{
			ProjectID:     projectID,
			PageID:        pageID,
			Instruction:   req.Instruction,
			UseTemplate:   req.UseTemplate,
			ReferenceURLs: req.ReferenceURLs,
			UploadedPaths: req.UploadedPaths,
		})
	if err != nil {
		return nil, newServiceError("edit_page_image", "failed to start task", err)
	}
	return record, nil
}

func (s *pageService) ListImageVersions(ctx context.Context, projectID, pageID uuid.UUID) ([]*domain.PageImageVersion, error) {
	if _, err := s.loadOwnedPage(ctx, projectID, pageID); err != nil {
		return nil, newServiceError("list_versions", "failed to load page", err)
	}
	versions, err := s.versions.ListByPage(ctx, pageID)
	if err != nil {
		return nil, newServiceError("list_versions", "failed to list versions", err)
	}
	return versions, nil
}

func (s *pageService) SetCurrentVersion(ctx context.Context, projectID, pageID, versionID uuid.UUID) (*domain.PageImageVersion, error) {
	if _, err := s.loadOwnedPage(ctx, projectID, pageID); err != nil {
		return nil, newServiceError("set_current_version", "failed to load page", err)
	}

	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, newServiceError("set_current_version", "failed to load version", err)
	}
	if version.PageID != pageID {
		return nil, ErrVersionNotFound
	}

	promoted, err := s.versions.SetCurrent(ctx, versionID)
	if err != nil {
		return nil, newServiceError("set_current_version", "failed to promote version", err)
	}

	s.logger.Debug("version promoted",
		slog.String("page_id", pageID.String()),
		slog.String("version_id", versionID.String()))
	return promoted, nil
}
