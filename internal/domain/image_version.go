package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for PageImageVersion
var (
	ErrEmptyVersionID        = errors.New("version ID cannot be empty")
	ErrEmptyVersionPageID    = errors.New("version page ID cannot be empty")
	ErrEmptyVersionImagePath = errors.New("version image path cannot be empty")
	ErrInvalidVersionNumber  = errors.New("version number must be >= 1")
)

// PageImageVersion is one entry in a page's append-only image version
// ledger. Version numbers are strictly increasing per page starting at 1,
// and at most one version per page is current at any time. The page's
// denormalized GeneratedImagePath always mirrors the current entry.
type PageImageVersion struct {
	ID            uuid.UUID `json:"id"`
	PageID        uuid.UUID `json:"page_id"`
	ImagePath     string    `json:"image_path"`
	VersionNumber int       `json:"version_number"`
	IsCurrent     bool      `json:"is_current"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewPageImageVersion creates a ledger entry for the given page and image
// path. The version number is assigned by the store at insert time, so the
// entry is created with number 0 and marked current; stores must replace the
// number with the page's next value inside the insert transaction.
func NewPageImageVersion(pageID uuid.UUID, imagePath string) (*PageImageVersion, error) {
	if pageID == uuid.Nil {
		return nil, ErrEmptyVersionPageID
	}
	if imagePath == "" {
		return nil, ErrEmptyVersionImagePath
	}

	return &PageImageVersion{
		ID:        uuid.New(),
		PageID:    pageID,
		ImagePath: imagePath,
		IsCurrent: true,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Validate checks a fully-populated ledger entry (i.e. after the store has
// assigned its version number).
func (v *PageImageVersion) Validate() error {
	if v.ID == uuid.Nil {
		return ErrEmptyVersionID
	}
	if v.PageID == uuid.Nil {
		return ErrEmptyVersionPageID
	}
	if v.ImagePath == "" {
		return ErrEmptyVersionImagePath
	}
	if v.VersionNumber < 1 {
		return ErrInvalidVersionNumber
	}
	return nil
}
