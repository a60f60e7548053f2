package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// PageStore defines the interface for page persistence.
type PageStore interface {
	// Create saves a new page.
	Create(ctx context.Context, page *domain.Page) error

	// GetByID retrieves a page by its ID.
	// Returns ErrPageNotFound if no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error)

	// ListByProject returns the project's pages ordered by position.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error)

	// Update saves changes to an existing page.
	Update(ctx context.Context, page *domain.Page) error

	// Delete removes a page; its image versions cascade.
	Delete(ctx context.Context, id uuid.UUID) error

	// ShiftOrderFrom increments the order index of all pages in the project
	// at or after the given position, making room for an insertion.
	ShiftOrderFrom(ctx context.Context, projectID uuid.UUID, orderIndex int) error

	// WithTx returns a PageStore bound to the provided transaction.
	WithTx(tx *sql.Tx) PageStore
}
