package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/events"
	"github.com/slidesmith/slidesmith-api/internal/pipeline"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// MaterialService provides material-related operations.
type MaterialService interface {
	// CreateMaterial registers a pending material for the project.
	CreateMaterial(ctx context.Context, projectID uuid.UUID, name, prompt string) (*domain.Material, error)

	// ListMaterials returns the project's materials.
	ListMaterials(ctx context.Context, projectID uuid.UUID) ([]*domain.Material, error)

	// GenerateMaterial starts a background task rendering the material's
	// image from its prompt.
	GenerateMaterial(ctx context.Context, projectID, materialID uuid.UUID) (*domain.TaskRecord, error)

	// DeleteMaterial removes a material.
	DeleteMaterial(ctx context.Context, projectID, materialID uuid.UUID) error
}

type materialService struct {
	projects  store.ProjectStore
	materials store.MaterialStore
	creator   *taskCreator
	logger    *slog.Logger
}

// NewMaterialService creates a new MaterialService.
func NewMaterialService(
	db *sql.DB,
	projects store.ProjectStore,
	materials store.MaterialStore,
	tasks store.TaskStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (MaterialService, error) {
	if projects == nil {
		return nil, fmt.Errorf("project store cannot be nil")
	}
	if materials == nil {
		return nil, fmt.Errorf("material store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "material_service"))

	creator, err := newTaskCreator(db, tasks, emitter, logger)
	if err != nil {
		return nil, err
	}

	return &materialService{
		projects:  projects,
		materials: materials,
		creator:   creator,
		logger:    logger,
	}, nil
}

func (s *materialService) CreateMaterial(ctx context.Context, projectID uuid.UUID, name, prompt string) (*domain.Material, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, newServiceError("create_material", "failed to load project", err)
	}

	material, err := domain.NewMaterial(projectID, name, prompt)
	if err != nil {
		return nil, newServiceError("create_material", "invalid material", err)
	}
	if err := s.materials.Create(ctx, material); err != nil {
		return nil, newServiceError("create_material", "failed to save material", err)
	}

	return material, nil
}

func (s *materialService) ListMaterials(ctx context.Context, projectID uuid.UUID) ([]*domain.Material, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, newServiceError("list_materials", "failed to load project", err)
	}
	materials, err := s.materials.ListByProject(ctx, projectID)
	if err != nil {
		return nil, newServiceError("list_materials", "failed to list materials", err)
	}
	return materials, nil
}

func (s *materialService) loadOwnedMaterial(ctx context.Context, projectID, materialID uuid.UUID) (*domain.Material, error) {
	material, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if material.ProjectID != projectID {
		return nil, ErrMaterialNotFound
	}
	return material, nil
}

func (s *materialService) GenerateMaterial(ctx context.Context, projectID, materialID uuid.UUID) (*domain.TaskRecord, error) {
	if _, err := s.loadOwnedMaterial(ctx, projectID, materialID); err != nil {
		return nil, newServiceError("generate_material", "failed to load material", err)
	}

	record, err := s.creator.create(ctx, projectID, domain.TaskKindGenerateMaterial, 1,
		pipeline.GenerateMaterialInput{
			ProjectID:  projectID,
			MaterialID: materialID,
		})
	if err != nil {
		return nil, newServiceError("generate_material", "failed to start task", err)
	}
	return record, nil
}

func (s *materialService) DeleteMaterial(ctx context.Context, projectID, materialID uuid.UUID) error {
	if _, err := s.loadOwnedMaterial(ctx, projectID, materialID); err != nil {
		return newServiceError("delete_material", "failed to load material", err)
	}
	if err := s.materials.Delete(ctx, materialID); err != nil {
		return newServiceError("delete_material", "failed to delete material", err)
	}
	return nil
}
