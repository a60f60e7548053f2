package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// ReferenceFileStore defines the interface for reference file persistence.
type ReferenceFileStore interface {
	// Create saves a new reference file.
	Create(ctx context.Context, file *domain.ReferenceFile) error

	// GetByID retrieves a reference file by its ID.
	// Returns ErrReferenceFileNotFound if no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ReferenceFile, error)

	// ListByProject returns the files attached to a project, newest first.
	// A nil projectID lists global files.
	ListByProject(ctx context.Context, projectID *uuid.UUID) ([]*domain.ReferenceFile, error)

	// List returns all reference files, newest first.
	List(ctx context.Context) ([]*domain.ReferenceFile, error)

	// Update saves changes to an existing reference file.
	Update(ctx context.Context, file *domain.ReferenceFile) error

	// Delete removes a reference file.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a ReferenceFileStore bound to the provided transaction.
	WithTx(tx *sql.Tx) ReferenceFileStore
}
