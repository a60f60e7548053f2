package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

// Possible project status values
const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusGenerating ProjectStatus = "generating"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// Common validation errors for Project
var (
	ErrEmptyProjectID       = errors.New("project ID cannot be empty")
	ErrEmptyIdeaPrompt      = errors.New("project idea prompt cannot be empty")
	ErrInvalidProjectStatus = errors.New("invalid project status")
)

// Project is the owning aggregate for a slide deck: an ordered set of pages
// plus the attributes that shape every generation prompt (template image,
// style text, extra requirements).
type Project struct {
	ID                uuid.UUID     `json:"id"`
	IdeaPrompt        string        `json:"idea_prompt"`
	ExtraRequirements string        `json:"extra_requirements,omitempty"`
	TemplateImagePath string        `json:"template_image_path,omitempty"`
	TemplateStyle     string        `json:"template_style,omitempty"`
	Status            ProjectStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NewProject creates a new Project in draft status from a user idea.
func NewProject(ideaPrompt string) (*Project, error) {
	project := &Project{
		ID:         uuid.New(),
		IdeaPrompt: ideaPrompt,
		Status:     ProjectStatusDraft,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := project.Validate(); err != nil {
		return nil, err
	}

	return project, nil
}

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProjectID
	}
	if p.IdeaPrompt == "" {
		return ErrEmptyIdeaPrompt
	}
	if !isValidProjectStatus(p.Status) {
		return ErrInvalidProjectStatus
	}
	return nil
}

// CombinedRequirements merges the project's extra requirements with its
// style description into the single requirements string appended to every
// generation prompt. Returns "" when neither is set.
func (p *Project) CombinedRequirements() string {
	combined := p.ExtraRequirements
	if p.TemplateStyle != "" {
		if combined != "" {
			combined += "\n\n"
		}
		combined += "Slide style description:\n\n" + p.TemplateStyle
	}
	return combined
}

// HasStyleReference reports whether the project carries anything usable as a
// style reference for image generation: either an uploaded template image or
// a textual style description.
func (p *Project) HasStyleReference() bool {
	return p.TemplateImagePath != "" || p.TemplateStyle != ""
}

func isValidProjectStatus(status ProjectStatus) bool {
	switch status {
	case ProjectStatusDraft, ProjectStatusGenerating, ProjectStatusCompleted:
		return true
	default:
		return false
	}
}
