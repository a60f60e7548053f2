package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/events"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// taskCreator persists a pending task record and emits the task request
// event that gets it picked up by the runner. Shared by every service that
// starts background work.
//
// The record is committed before the event goes out, so a client holding
// the returned task ID can always poll it; if the event cannot be handled
// the factory handler marks the record failed rather than leaving it
// pending.
type taskCreator struct {
	db      *sql.DB
	tasks   store.TaskStore
	emitter events.EventEmitter
	logger  *slog.Logger
}

func newTaskCreator(db *sql.DB, tasks store.TaskStore, emitter events.EventEmitter, logger *slog.Logger) (*taskCreator, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskCreator{db: db, tasks: tasks, emitter: emitter, logger: logger}, nil
}

// create persists a pending record for the given owner and kind, then emits
// the request event with the given pipeline payload. total is the number of
// sub-units the pipeline will report progress over.
func (c *taskCreator) create(ctx context.Context, ownerID uuid.UUID, kind domain.TaskKind, total int, payload any) (*domain.TaskRecord, error) {
	record, err := domain.NewTaskRecord(ownerID, kind, total)
	if err != nil {
		return nil, fmt.Errorf("failed to build task record: %w", err)
	}

	err = store.RunInTransaction(ctx, c.db, func(ctx context.Context, tx *sql.Tx) error {
		return c.tasks.WithTx(tx).Create(ctx, record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save task record: %w", err)
	}

	event, err := events.NewTaskRequestEvent(record.ID, ownerID, kind, payload)
	if err != nil {
		// The record exists but no event will ever arrive for it; fail it
		// here so it does not stay pending.
		c.failOrphan(ctx, record.ID, err)
		return nil, fmt.Errorf("failed to build task event: %w", err)
	}

	if err := c.emitter.EmitEvent(ctx, event); err != nil {
		// The factory handler fails the record itself on submit errors, but
		// emit can also fail before any handler ran.
		return nil, fmt.Errorf("failed to start %s task: %w", kind, err)
	}

	c.logger.Debug("task created",
		slog.String("task_id", record.ID.String()),
		slog.String("kind", string(kind)))
	return record, nil
}

func (c *taskCreator) failOrphan(ctx context.Context, taskID uuid.UUID, cause error) {
	if err := c.tasks.MarkFailed(ctx, taskID, cause.Error()); err != nil {
		c.logger.Error("failed to mark orphaned task failed",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
	}
}
