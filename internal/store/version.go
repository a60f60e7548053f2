package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// ImageVersionStore is the page image version ledger: an append-only log of
// generated images per page with a single "current" pointer.
//
// Implementations must make the clear-old-current / set-new-current
// transition a single atomic operation, and keep the page's denormalized
// image pointer in step with the current entry, so the at-most-one-current
// invariant holds under concurrent edits of the same page.
type ImageVersionStore interface {
	// CreateVersion appends a ledger entry for the page with the next
	// version number, marks it current, clears the current flag on all
	// siblings, and updates the page's image pointer, all in one
	// transaction. Returns the stored entry.
	CreateVersion(ctx context.Context, pageID uuid.UUID, imagePath string) (*domain.PageImageVersion, error)

	// GetByID retrieves a single ledger entry.
	// Returns ErrVersionNotFound if no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PageImageVersion, error)

	// ListByPage returns the page's versions ordered newest first.
	ListByPage(ctx context.Context, pageID uuid.UUID) ([]*domain.PageImageVersion, error)

	// SetCurrent promotes an existing version to current without creating a
	// new row, clearing siblings and updating the page pointer in one
	// transaction. Idempotent when the version is already current.
	SetCurrent(ctx context.Context, versionID uuid.UUID) (*domain.PageImageVersion, error)
}
