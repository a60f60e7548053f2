package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/platform/logger"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// PostgresMaterialStore implements the store.MaterialStore interface using PostgreSQL.
type PostgresMaterialStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMaterialStore creates a new PostgresMaterialStore.
func NewPostgresMaterialStore(db store.DBTX, logger *slog.Logger) *PostgresMaterialStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMaterialStore{
		db:     db,
		logger: logger.With(slog.String("component", "material_store")),
	}
}

// Ensure PostgresMaterialStore implements store.MaterialStore
var _ store.MaterialStore = (*PostgresMaterialStore)(nil)

// Create saves a new material.
func (s *PostgresMaterialStore) Create(ctx context.Context, material *domain.Material) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := material.Validate(); err != nil {
		log.Warn("material validation failed during create",
			slog.String("error", err.Error()),
			slog.String("material_id", material.ID.String()))
		return err
	}

	query := `
		INSERT INTO materials (id, project_id, name, prompt, image_path,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		material.ID,
		material.ProjectID,
		material.Name,
		material.Prompt,
		material.ImagePath,
		material.Status,
		material.CreatedAt,
		material.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("material references missing project",
				slog.String("material_id", material.ID.String()),
				slog.String("project_id", material.ProjectID.String()))
			return store.ErrInvalidEntity
		}
		log.Error("failed to save material",
			slog.String("material_id", material.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to save material: %w", err)
	}

	return nil
}

// GetByID retrieves a material by its ID.
func (s *PostgresMaterialStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Material, error) {
	query := `
		SELECT id, project_id, name, prompt, image_path, status, created_at, updated_at
		FROM materials
		WHERE id = $1
	`

	var material domain.Material
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&material.ID,
		&material.ProjectID,
		&material.Name,
		&material.Prompt,
		&material.ImagePath,
		&material.Status,
		&material.CreatedAt,
		&material.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMaterialNotFound
		}
		return nil, fmt.Errorf("failed to get material: %w", err)
	}

	return &material, nil
}

// ListByProject returns the project's materials ordered by creation time.
func (s *PostgresMaterialStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Material, error) {
	query := `
		SELECT id, project_id, name, prompt, image_path, status, created_at, updated_at
		FROM materials
		WHERE project_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var materials []*domain.Material
	for rows.Next() {
		var material domain.Material
		if err := rows.Scan(
			&material.ID,
			&material.ProjectID,
			&material.Name,
			&material.Prompt,
			&material.ImagePath,
			&material.Status,
			&material.CreatedAt,
			&material.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, &material)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate materials: %w", err)
	}

	return materials, nil
}

// Update saves changes to an existing material.
func (s *PostgresMaterialStore) Update(ctx context.Context, material *domain.Material) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := material.Validate(); err != nil {
		log.Warn("material validation failed during update",
			slog.String("error", err.Error()),
			slog.String("material_id", material.ID.String()))
		return err
	}

	material.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE materials
		SET name = $1, prompt = $2, image_path = $3, status = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		material.Name,
		material.Prompt,
		material.ImagePath,
		material.Status,
		material.UpdatedAt,
		material.ID,
	)
	if err != nil {
		log.Error("failed to update material",
			slog.String("material_id", material.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to update material: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrMaterialNotFound
	}

	return nil
}

// Delete removes a material.
func (s *PostgresMaterialStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrMaterialNotFound
	}

	return nil
}

// WithTx returns a MaterialStore bound to the provided transaction.
func (s *PostgresMaterialStore) WithTx(tx *sql.Tx) store.MaterialStore {
	return &PostgresMaterialStore{
		db:     tx,
		logger: s.logger,
	}
}
