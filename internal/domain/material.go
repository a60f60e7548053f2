package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaterialStatus represents the generation state of a material.
type MaterialStatus string

// Possible material status values
const (
	MaterialStatusPending   MaterialStatus = "pending"
	MaterialStatusGenerated MaterialStatus = "generated"
	MaterialStatusFailed    MaterialStatus = "failed"
)

// Common validation errors for Material
var (
	ErrEmptyMaterialID        = errors.New("material ID cannot be empty")
	ErrEmptyMaterialProjectID = errors.New("material project ID cannot be empty")
	ErrEmptyMaterialName      = errors.New("material name cannot be empty")
	ErrInvalidMaterialStatus  = errors.New("invalid material status")
)

// Material is a generated illustration asset (chart, diagram, decorative
// image) owned by a project. Page descriptions reference material images by
// URL; the page render pipeline picks those URLs up as reference images.
type Material struct {
	ID        uuid.UUID      `json:"id"`
	ProjectID uuid.UUID      `json:"project_id"`
	Name      string         `json:"name"`
	Prompt    string         `json:"prompt,omitempty"`
	ImagePath string         `json:"image_path,omitempty"`
	Status    MaterialStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewMaterial creates a pending Material for the given project.
func NewMaterial(projectID uuid.UUID, name, prompt string) (*Material, error) {
	material := &Material{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		Prompt:    prompt,
		Status:    MaterialStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := material.Validate(); err != nil {
		return nil, err
	}

	return material, nil
}

// Validate checks if the Material has valid data.
func (m *Material) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMaterialID
	}
	if m.ProjectID == uuid.Nil {
		return ErrEmptyMaterialProjectID
	}
	if m.Name == "" {
		return ErrEmptyMaterialName
	}
	if !isValidMaterialStatus(m.Status) {
		return ErrInvalidMaterialStatus
	}
	return nil
}

func isValidMaterialStatus(status MaterialStatus) bool {
	switch status {
	case MaterialStatusPending, MaterialStatusGenerated, MaterialStatusFailed:
		return true
	default:
		return false
	}
}
