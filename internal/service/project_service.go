package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/storage"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// templateCategory is the artifact category template uploads are stored
// under.
const templateCategory = "templates"

// ProjectUpdate carries the mutable project attributes. Nil fields are left
// unchanged.
type ProjectUpdate struct {
	IdeaPrompt        *string
	ExtraRequirements *string
	TemplateStyle     *string
}

// ProjectService provides project-related operations.
type ProjectService interface {
	// CreateProject creates a new draft project from a user idea.
	CreateProject(ctx context.Context, ideaPrompt, extraRequirements string) (*domain.Project, error)

	// GetProject retrieves a project by its ID.
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// UpdateProject applies the non-nil fields of the update.
	UpdateProject(ctx context.Context, id uuid.UUID, update ProjectUpdate) (*domain.Project, error)

	// DeleteProject removes a project; pages, versions, materials and tasks
	// cascade in the store.
	DeleteProject(ctx context.Context, id uuid.UUID) error

	// UploadTemplateImage stores an uploaded template image and attaches it
	// to the project as the style reference for generation prompts.
	UploadTemplateImage(ctx context.Context, id uuid.UUID, filename string, data []byte) (*domain.Project, error)
}

type projectService struct {
	projects  store.ProjectStore
	artifacts storage.ArtifactStore
	logger    *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects store.ProjectStore, artifacts storage.ArtifactStore, logger *slog.Logger) (ProjectService, error) {
	if projects == nil {
		return nil, fmt.Errorf("project store cannot be nil")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &projectService{
		projects:  projects,
		artifacts: artifacts,
		logger:    logger.With(slog.String("component", "project_service")),
	}, nil
}

func (s *projectService) CreateProject(ctx context.Context, ideaPrompt, extraRequirements string) (*domain.Project, error) {
	project, err := domain.NewProject(ideaPrompt)
	if err != nil {
		return nil, newServiceError("create_project", "invalid project", err)
	}
	project.ExtraRequirements = extraRequirements

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, newServiceError("create_project", "failed to save project", err)
	}

	s.logger.Debug("project created", slog.String("project_id", project.ID.String()))
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("get_project", "failed to load project", err)
	}
	return project, nil
}

func (s *projectService) UpdateProject(ctx context.Context, id uuid.UUID, update ProjectUpdate) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("update_project", "failed to load project", err)
	}

	if update.IdeaPrompt != nil {
		project.IdeaPrompt = *update.IdeaPrompt
	}
	if update.ExtraRequirements != nil {
		project.ExtraRequirements = *update.ExtraRequirements
	}
	if update.TemplateStyle != nil {
		project.TemplateStyle = *update.TemplateStyle
	}
	project.UpdatedAt = time.Now().UTC()

	if err := project.Validate(); err != nil {
		return nil, newServiceError("update_project", "invalid project", err)
	}
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, newServiceError("update_project", "failed to save project", err)
	}

	return project, nil
}

func (s *projectService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return newServiceError("delete_project", "failed to delete project", err)
	}
	return nil
}

func (s *projectService) UploadTemplateImage(ctx context.Context, id uuid.UUID, filename string, data []byte) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("upload_template", "failed to load project", err)
	}

	path, err := s.artifacts.Save(ctx, project.ID.String(), templateCategory, filename, data)
	if err != nil {
		return nil, newServiceError("upload_template", "failed to store template image", err)
	}

	project.TemplateImagePath = path
	project.UpdatedAt = time.Now().UTC()
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, newServiceError("upload_template", "failed to save project", err)
	}

	s.logger.Debug("template image attached",
		slog.String("project_id", project.ID.String()),
		slog.String("path", path))
	return project, nil
}
