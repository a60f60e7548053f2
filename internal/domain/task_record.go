package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a background task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether the status is a final one.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskKind identifies which pipeline a task record tracks.
type TaskKind string

// Task kind constants
const (
	TaskKindGeneratePageImage  TaskKind = "generate_page_image"
	TaskKindEditPageImage      TaskKind = "edit_page_image"
	TaskKindGenerateMaterial   TaskKind = "generate_material"
	TaskKindExportEditableDeck TaskKind = "export_editable_deck"
)

// GlobalOwnerID is the sentinel owner for tasks not tied to a specific
// project.
var GlobalOwnerID = uuid.Nil

// Common validation errors for TaskRecord
var (
	ErrEmptyTaskID         = errors.New("task ID cannot be empty")
	ErrInvalidTaskKind     = errors.New("invalid task kind")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidTaskProgress = errors.New("task progress counters are inconsistent")
	ErrTaskAlreadyTerminal = errors.New("task is already in a terminal state")
	ErrTaskNotYetRunning   = errors.New("task must be running before completion")
)

// Progress holds the structured progress counters of a task. Completed and
// Failed count finished sub-units of work; their sum never exceeds Total.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Validate checks the counter invariants.
func (p Progress) Validate() error {
	if p.Total < 0 || p.Completed < 0 || p.Failed < 0 {
		return ErrInvalidTaskProgress
	}
	if p.Completed+p.Failed > p.Total {
		return ErrInvalidTaskProgress
	}
	return nil
}

// TaskRecord is the durable handle for one background job. It is created
// pending by the request handler, picked up by exactly one worker that moves
// it to running, and reaches a terminal state (completed or failed) exactly
// once. CompletedAt is set iff the status is terminal.
type TaskRecord struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Kind        TaskKind   `json:"kind"`
	Status      TaskStatus `json:"status"`
	Progress    Progress   `json:"progress"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTaskRecord creates a pending task record for the given owner and kind.
// Use domain.GlobalOwnerID for tasks not tied to a project. total is the
// number of sub-units the task will process (1 for single-step pipelines).
func NewTaskRecord(ownerID uuid.UUID, kind TaskKind, total int) (*TaskRecord, error) {
	record := &TaskRecord{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Kind:      kind,
		Status:    TaskStatusPending,
		Progress:  Progress{Total: total},
		CreatedAt: time.Now().UTC(),
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the TaskRecord has valid data.
func (t *TaskRecord) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if !isValidTaskKind(t.Kind) {
		return ErrInvalidTaskKind
	}
	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}
	if err := t.Progress.Validate(); err != nil {
		return err
	}
	if t.IsTerminal() != (t.CompletedAt != nil) {
		return ErrInvalidTaskStatus
	}
	return nil
}

// IsTerminal reports whether the task has finished, successfully or not.
func (t *TaskRecord) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// MarkRunning transitions a pending task to running.
func (t *TaskRecord) MarkRunning() error {
	if t.IsTerminal() {
		return ErrTaskAlreadyTerminal
	}
	t.Status = TaskStatusRunning
	return nil
}

// MarkCompleted transitions a running task to completed and stamps
// CompletedAt. The transition happens at most once.
func (t *TaskRecord) MarkCompleted() error {
	if t.IsTerminal() {
		return ErrTaskAlreadyTerminal
	}
	if t.Status != TaskStatusRunning {
		return ErrTaskNotYetRunning
	}
	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	return nil
}

// MarkFailed transitions a task to failed with a human-readable cause and
// stamps CompletedAt. The transition happens at most once.
func (t *TaskRecord) MarkFailed(cause string) error {
	if t.IsTerminal() {
		return ErrTaskAlreadyTerminal
	}
	now := time.Now().UTC()
	t.Status = TaskStatusFailed
	t.Error = cause
	t.CompletedAt = &now
	return nil
}

func isValidTaskKind(kind TaskKind) bool {
	switch kind {
	case TaskKindGeneratePageImage, TaskKindEditPageImage,
		TaskKindGenerateMaterial, TaskKindExportEditableDeck:
		return true
	default:
		return false
	}
}

func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
