package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// MaterialStore defines the interface for material persistence.
type MaterialStore interface {
	// Create saves a new material.
	Create(ctx context.Context, material *domain.Material) error

	// GetByID retrieves a material by its ID.
	// Returns ErrMaterialNotFound if no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Material, error)

	// ListByProject returns the project's materials ordered by creation time.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Material, error)

	// Update saves changes to an existing material.
	Update(ctx context.Context, material *domain.Material) error

	// Delete removes a material.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a MaterialStore bound to the provided transaction.
	WithTx(tx *sql.Tx) MaterialStore
}
