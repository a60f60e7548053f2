package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// TaskStore defines the interface for persisting task records.
//
// Status transitions are guarded at the SQL level so that a terminal state is
// reached exactly once even if callers race: MarkCompleted and MarkFailed are
// no-ops on already-terminal rows. Progress increments are single UPDATE
// statements, never read-modify-write, so concurrent sub-units of a fan-out
// stage can report independently.
type TaskStore interface {
	// Create persists a new pending task record. It is typically called
	// through WithTx inside the same transaction that validated the
	// request, so a task row never exists for an invalid submission.
	Create(ctx context.Context, record *domain.TaskRecord) error

	// GetByID retrieves a task record by its ID.
	// Returns ErrTaskNotFound if no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)

	// MarkRunning transitions a pending task to running.
	MarkRunning(ctx context.Context, id uuid.UUID) error

	// MarkCompleted transitions a running task to completed and stamps
	// completed_at. No-op if the task is already terminal.
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// MarkFailed transitions a task to failed, records the cause and stamps
	// completed_at. No-op if the task is already terminal.
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error

	// SetProgressTotal sets the progress total, used when a pipeline only
	// learns its sub-unit count after the task was created.
	SetProgressTotal(ctx context.Context, id uuid.UUID, total int) error

	// IncrementProgress atomically adds the deltas to the completed/failed
	// counters.
	IncrementProgress(ctx context.Context, id uuid.UUID, completedDelta, failedDelta int) error

	// FailStale marks every non-terminal task as failed with the given cause
	// and returns the number of rows affected. The task queue is in-memory,
	// so rows left pending or running by a previous process can never finish;
	// the runner calls this on startup.
	FailStale(ctx context.Context, cause string) (int64, error)

	// WithTx returns a TaskStore bound to the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
