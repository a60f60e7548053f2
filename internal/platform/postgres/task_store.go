package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/platform/logger"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create persists a new pending task record.
func (s *PostgresTaskStore) Create(ctx context.Context, record *domain.TaskRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("task record validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", record.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, owner_id, kind, status, progress_total,
			progress_completed, progress_failed, error_message, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.OwnerID,
		record.Kind,
		record.Status,
		record.Progress.Total,
		record.Progress.Completed,
		record.Progress.Failed,
		record.Error,
		record.CreatedAt,
		record.CompletedAt,
	)
	if err != nil {
		log.Error("failed to save task record",
			slog.String("task_id", record.ID.String()),
			slog.String("kind", string(record.Kind)),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to save task record: %w", err)
	}

	return nil
}

// GetByID retrieves a task record by its ID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	query := `
		SELECT id, owner_id, kind, status, progress_total, progress_completed,
			progress_failed, error_message, created_at, completed_at
		FROM tasks
		WHERE id = $1
	`

	var record domain.TaskRecord
	var errorMessage sql.NullString
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.OwnerID,
		&record.Kind,
		&record.Status,
		&record.Progress.Total,
		&record.Progress.Completed,
		&record.Progress.Failed,
		&errorMessage,
		&record.CreatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task record: %w", err)
	}

	record.Error = errorMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}

	return &record, nil
}

// MarkRunning transitions a pending task to running. The WHERE clause keeps
// terminal rows untouched so a late transition can never resurrect a task.
func (s *PostgresTaskStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tasks
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	return s.execTransition(ctx, id, query, domain.TaskStatusRunning, id, domain.TaskStatusPending)
}

// MarkCompleted transitions a running task to completed exactly once.
func (s *PostgresTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tasks
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`
	return s.execTransition(ctx, id, query,
		domain.TaskStatusCompleted, time.Now().UTC(), id, domain.TaskStatusRunning)
}

// MarkFailed transitions a non-terminal task to failed exactly once,
// recording the cause.
func (s *PostgresTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4 AND status NOT IN ($5, $6)
	`
	return s.execTransition(ctx, id, query,
		domain.TaskStatusFailed, cause, time.Now().UTC(), id,
		domain.TaskStatusCompleted, domain.TaskStatusFailed)
}

// SetProgressTotal sets the progress total counter.
func (s *PostgresTaskStore) SetProgressTotal(ctx context.Context, id uuid.UUID, total int) error {
	query := `
		UPDATE tasks
		SET progress_total = $1
		WHERE id = $2
	`
	return s.execTransition(ctx, id, query, total, id)
}

// IncrementProgress atomically adds the deltas to the progress counters.
// The arithmetic happens inside the UPDATE so concurrent increments from
// fan-out sub-units serialize at the database without a read-modify-write
// window.
func (s *PostgresTaskStore) IncrementProgress(ctx context.Context, id uuid.UUID, completedDelta, failedDelta int) error {
	query := `
		UPDATE tasks
		SET progress_completed = progress_completed + $1,
			progress_failed = progress_failed + $2
		WHERE id = $3
	`
	return s.execTransition(ctx, id, query, completedDelta, failedDelta, id)
}

// FailStale marks every non-terminal task as failed. Called at startup: the
// in-memory queue does not survive restarts, so rows left pending or running
// by a previous process can never reach a terminal state on their own.
func (s *PostgresTaskStore) FailStale(ctx context.Context, cause string) (int64, error) {
	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, completed_at = $3
		WHERE status NOT IN ($4, $5)
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusFailed, cause, time.Now().UTC(),
		domain.TaskStatusCompleted, domain.TaskStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale tasks: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// WithTx returns a TaskStore bound to the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// execTransition runs an UPDATE and logs when no row matched, which either
// means the task does not exist or its state already moved on.
func (s *PostgresTaskStore) execTransition(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update task record",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to update task record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		log.Warn("task update matched no rows",
			slog.String("task_id", id.String()))
	}

	return nil
}
