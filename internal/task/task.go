package task

import (
	"context"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// Task represents a unit of background work to be processed. The persistent
// record for a task is created by the submitting service before the task is
// enqueued; Execute carries only the work itself.
type Task interface {
	// ID returns the task's unique identifier, which is also the primary key
	// of its persisted record.
	ID() uuid.UUID

	// OwnerID returns the ID of the owning aggregate (project), or
	// domain.GlobalOwnerID for work not tied to a project.
	OwnerID() uuid.UUID

	// Kind returns the task kind identifier.
	Kind() domain.TaskKind

	// Execute runs the task logic. A nil return marks the task completed; an
	// error (or a panic, which the runner absorbs) marks it failed.
	Execute(ctx context.Context) error
}

// fnTask adapts a closure to the Task interface.
type fnTask struct {
	id      uuid.UUID
	ownerID uuid.UUID
	kind    domain.TaskKind
	fn      func(ctx context.Context) error
}

// New wraps a closure as a Task carrying the given identity.
func New(id, ownerID uuid.UUID, kind domain.TaskKind, fn func(ctx context.Context) error) Task {
	return &fnTask{id: id, ownerID: ownerID, kind: kind, fn: fn}
}

func (t *fnTask) ID() uuid.UUID                    { return t.id }
func (t *fnTask) OwnerID() uuid.UUID               { return t.ownerID }
func (t *fnTask) Kind() domain.TaskKind            { return t.kind }
func (t *fnTask) Execute(ctx context.Context) error { return t.fn(ctx) }
