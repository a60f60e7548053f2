package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// TaskRequestEvent asks for a background task to be started. The task record
// identified by TaskID already exists in pending state when the event is
// emitted; the payload carries the pipeline-specific input.
type TaskRequestEvent struct {
	// ID is a unique identifier for this event.
	ID uuid.UUID `json:"id"`

	// TaskID is the ID of the pending task record the pipeline will drive.
	TaskID uuid.UUID `json:"task_id"`

	// OwnerID is the owning project, or domain.GlobalOwnerID.
	OwnerID uuid.UUID `json:"owner_id"`

	// Kind selects which pipeline handles the event.
	Kind domain.TaskKind `json:"kind"`

	// Payload contains the pipeline input serialized as JSON.
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created.
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent creates a TaskRequestEvent for an existing pending task
// record.
func NewTaskRequestEvent(taskID, ownerID uuid.UUID, kind domain.TaskKind, payload any) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		TaskID:    taskID,
		OwnerID:   ownerID,
		Kind:      kind,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler processes emitted task request events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter publishes task request events without knowledge of the
// registered handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
