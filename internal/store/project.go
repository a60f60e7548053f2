package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// ProjectStore defines the interface for project persistence.
type ProjectStore interface {
	// Create saves a new project.
	Create(ctx context.Context, project *domain.Project) error

	// GetByID retrieves a project by its ID.
	// Returns ErrProjectNotFound if no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// Update saves changes to an existing project.
	Update(ctx context.Context, project *domain.Project) error

	// Delete removes a project; pages, versions, materials and tasks cascade.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a ProjectStore bound to the provided transaction.
	WithTx(tx *sql.Tx) ProjectStore
}
