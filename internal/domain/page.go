package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PageStatus represents how far a page has progressed through generation.
type PageStatus string

// Possible page status values
const (
	PageStatusDraft                PageStatus = "draft"
	PageStatusDescriptionGenerated PageStatus = "description_generated"
	PageStatusImageGenerated       PageStatus = "image_generated"
)

// Common validation errors for Page
var (
	ErrEmptyPageID        = errors.New("page ID cannot be empty")
	ErrEmptyPageProjectID = errors.New("page project ID cannot be empty")
	ErrNegativeOrderIndex = errors.New("page order index cannot be negative")
	ErrInvalidPageStatus  = errors.New("invalid page status")
)

// PageOutline is the structured outline content of a single page.
type PageOutline struct {
	Title  string   `json:"title"`
	Points []string `json:"points,omitempty"`
}

// PageDescription is the structured visual description of a page, produced
// by the text model and consumed by the image generation pipeline. Text may
// contain markdown image links referencing material images that the render
// must reproduce.
type PageDescription struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Page represents a single slide. Pages are ordered within a project by
// OrderIndex; consecutive pages may share a Part (section) label, which the
// outline reconstruction groups into sections.
type Page struct {
	ID                 uuid.UUID        `json:"id"`
	ProjectID          uuid.UUID        `json:"project_id"`
	OrderIndex         int              `json:"order_index"`
	Part               string           `json:"part,omitempty"`
	Outline            *PageOutline     `json:"outline,omitempty"`
	Description        *PageDescription `json:"description,omitempty"`
	GeneratedImagePath string           `json:"generated_image_path,omitempty"`
	Status             PageStatus       `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewPage creates a new draft Page for the given project at the given
// position.
func NewPage(projectID uuid.UUID, orderIndex int, part string) (*Page, error) {
	page := &Page{
		ID:         uuid.New(),
		ProjectID:  projectID,
		OrderIndex: orderIndex,
		Part:       part,
		Status:     PageStatusDraft,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := page.Validate(); err != nil {
		return nil, err
	}

	return page, nil
}

// Validate checks if the Page has valid data.
func (p *Page) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPageID
	}
	if p.ProjectID == uuid.Nil {
		return ErrEmptyPageProjectID
	}
	if p.OrderIndex < 0 {
		return ErrNegativeOrderIndex
	}
	if !isValidPageStatus(p.Status) {
		return ErrInvalidPageStatus
	}
	return nil
}

// HasDescription reports whether the page has non-empty description content,
// the prerequisite for image generation.
func (p *Page) HasDescription() bool {
	return p.Description != nil && p.Description.Text != ""
}

// HasGeneratedImage reports whether the page has a generated image, the
// prerequisite for image editing.
func (p *Page) HasGeneratedImage() bool {
	return p.GeneratedImagePath != ""
}

func isValidPageStatus(status PageStatus) bool {
	switch status {
	case PageStatusDraft, PageStatusDescriptionGenerated, PageStatusImageGenerated:
		return true
	default:
		return false
	}
}
