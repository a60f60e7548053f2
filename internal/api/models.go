package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// CreateProjectRequest is the request to create a project.
type CreateProjectRequest struct {
	IdeaPrompt        string `json:"idea_prompt"        validate:"required"`
	ExtraRequirements string `json:"extra_requirements"`
}

// UpdateProjectRequest carries partial project updates; absent fields stay
// unchanged.
type UpdateProjectRequest struct {
	IdeaPrompt        *string `json:"idea_prompt,omitempty"        validate:"omitempty,min=1"`
	ExtraRequirements *string `json:"extra_requirements,omitempty"`
	TemplateStyle     *string `json:"template_style,omitempty"`
}

// CreatePageRequest is the request to insert a page.
type CreatePageRequest struct {
	OrderIndex int    `json:"order_index" validate:"gte=0"`
	Part       string `json:"part"`
}

// UpdateOutlineRequest replaces a page's outline content.
type UpdateOutlineRequest struct {
	Part   string   `json:"part"`
	Title  string   `json:"title"  validate:"required"`
	Points []string `json:"points"`
}

// UpdateDescriptionRequest replaces a page's visual description.
type UpdateDescriptionRequest struct {
	Text string `json:"text" validate:"required"`
}

// GenerateImageRequest starts a page image generation task.
type GenerateImageRequest struct {
	UseTemplate bool   `json:"use_template"`
	Language    string `json:"language"`
}

// EditImageRequest starts a page image edit task.
type EditImageRequest struct {
	Instruction   string   `json:"instruction" validate:"required"`
	UseTemplate   bool     `json:"use_template"`
	ReferenceURLs []string `json:"reference_urls"`
	UploadedPaths []string `json:"uploaded_paths"`
}

// CreateMaterialRequest registers a material for generation.
type CreateMaterialRequest struct {
	Name   string `json:"name"   validate:"required"`
	Prompt string `json:"prompt" validate:"required"`
}

// TaskResponse is the polling view of a task record.
type TaskResponse struct {
	TaskID      uuid.UUID       `json:"task_id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Progress    domain.Progress `json:"progress"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewTaskResponse builds the response view of a task record.
func NewTaskResponse(record *domain.TaskRecord) TaskResponse {
	return TaskResponse{
		TaskID:      record.ID,
		Kind:        string(record.Kind),
		Status:      string(record.Status),
		Progress:    record.Progress,
		Error:       record.Error,
		CreatedAt:   record.CreatedAt,
		CompletedAt: record.CompletedAt,
	}
}

// TaskAcceptedResponse is the 202 body returned when a background task was
// created; the client polls GET /tasks/{id} with it.
type TaskAcceptedResponse struct {
	TaskID uuid.UUID `json:"task_id"`
}
