package task

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTaskStore is an in-memory store.TaskStore that records status
// transitions for assertions.
type fakeTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.TaskRecord
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{records: make(map[uuid.UUID]*domain.TaskRecord)}
}

func (s *fakeTaskStore) Create(ctx context.Context, record *domain.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *fakeTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *fakeTaskStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok && record.Status == domain.TaskStatusPending {
		record.Status = domain.TaskStatusRunning
	}
	return nil
}

func (s *fakeTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok && !record.Status.IsTerminal() {
		record.Status = domain.TaskStatusCompleted
		now := time.Now().UTC()
		record.CompletedAt = &now
	}
	return nil
}

func (s *fakeTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok && !record.Status.IsTerminal() {
		record.Status = domain.TaskStatusFailed
		record.Error = cause
		now := time.Now().UTC()
		record.CompletedAt = &now
	}
	return nil
}

func (s *fakeTaskStore) SetProgressTotal(ctx context.Context, id uuid.UUID, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.Progress.Total = total
	}
	return nil
}

func (s *fakeTaskStore) IncrementProgress(ctx context.Context, id uuid.UUID, completedDelta, failedDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.Progress.Completed += completedDelta
		record.Progress.Failed += failedDelta
	}
	return nil
}

func (s *fakeTaskStore) FailStale(ctx context.Context, cause string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, record := range s.records {
		if !record.Status.IsTerminal() {
			record.Status = domain.TaskStatusFailed
			record.Error = cause
			now := time.Now().UTC()
			record.CompletedAt = &now
			count++
		}
	}
	return count, nil
}

func (s *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

func (s *fakeTaskStore) mustGet(t *testing.T, id uuid.UUID) *domain.TaskRecord {
	t.Helper()
	record, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	return record
}

func newTestRunner(t *testing.T, taskStore store.TaskStore, workers, queueSize int) *Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(taskStore, RunnerConfig{WorkerCount: workers, QueueSize: queueSize}, logger)
}

func pendingRecord(t *testing.T, taskStore *fakeTaskStore) *domain.TaskRecord {
	t.Helper()
	record, err := domain.NewTaskRecord(uuid.New(), domain.TaskKindGeneratePageImage, 1)
	require.NoError(t, err)
	require.NoError(t, taskStore.Create(context.Background(), record))
	return record
}

func waitForTerminal(t *testing.T, taskStore *fakeTaskStore, id uuid.UUID) *domain.TaskRecord {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		record := taskStore.mustGet(t, id)
		if record.Status.IsTerminal() {
			return record
		}
		select {
		case <-deadline:
			t.Fatalf("task %s never reached a terminal state (status=%s)", id, record.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunnerCompletesSuccessfulTask(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	runner := newTestRunner(t, taskStore, 2, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	record := pendingRecord(t, taskStore)
	err := runner.Submit(New(record.ID, record.OwnerID, record.Kind, func(ctx context.Context) error {
		return nil
	}))
	require.NoError(t, err)

	final := waitForTerminal(t, taskStore, record.ID)
	assert.Equal(t, domain.TaskStatusCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)
	assert.Empty(t, final.Error)
}

func TestRunnerFailsTaskOnError(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	runner := newTestRunner(t, taskStore, 1, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	record := pendingRecord(t, taskStore)
	err := runner.Submit(New(record.ID, record.OwnerID, record.Kind, func(ctx context.Context) error {
		return errors.New("model unavailable")
	}))
	require.NoError(t, err)

	final := waitForTerminal(t, taskStore, record.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status)
	assert.Equal(t, "model unavailable", final.Error)
	assert.NotNil(t, final.CompletedAt)
}

func TestRunnerAbsorbsPanics(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	runner := newTestRunner(t, taskStore, 1, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	panicked := pendingRecord(t, taskStore)
	err := runner.Submit(New(panicked.ID, panicked.OwnerID, panicked.Kind, func(ctx context.Context) error {
		panic("boom")
	}))
	require.NoError(t, err)

	final := waitForTerminal(t, taskStore, panicked.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status)
	assert.Contains(t, final.Error, "boom")

	// The worker that absorbed the panic must still process new tasks.
	after := pendingRecord(t, taskStore)
	err = runner.Submit(New(after.ID, after.OwnerID, after.Kind, func(ctx context.Context) error {
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, waitForTerminal(t, taskStore, after.ID).Status)
}

func TestRunnerRejectsWhenQueueFull(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	runner := newTestRunner(t, taskStore, 1, 1)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	release := make(chan struct{})
	blocker := pendingRecord(t, taskStore)
	require.NoError(t, runner.Submit(New(blocker.ID, blocker.OwnerID, blocker.Kind, func(ctx context.Context) error {
		<-release
		return nil
	})))

	// Saturate the single queue slot, then the next submission must be
	// rejected without blocking.
	var sawFull bool
	for i := 0; i < 3; i++ {
		record := pendingRecord(t, taskStore)
		err := runner.Submit(New(record.ID, record.OwnerID, record.Kind, func(ctx context.Context) error {
			return nil
		}))
		if errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
		require.NoError(t, err)
	}
	assert.True(t, sawFull, "expected ErrQueueFull once the queue saturated")

	close(release)
}

// runningRejectedStore refuses the pending->running transition, simulating a
// store outage at pickup time.
type runningRejectedStore struct {
	*fakeTaskStore
}

func (s *runningRejectedStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return errors.New("connection reset")
}

func TestRunnerFailsTaskWhenMarkRunningFails(t *testing.T) {
	t.Parallel()

	inner := newFakeTaskStore()
	runner := newTestRunner(t, &runningRejectedStore{fakeTaskStore: inner}, 1, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	record := pendingRecord(t, inner)
	var executed atomic.Bool
	err := runner.Submit(New(record.ID, record.OwnerID, record.Kind, func(ctx context.Context) error {
		executed.Store(true)
		return nil
	}))
	require.NoError(t, err)

	// The record must not be stranded pending until the next restart.
	final := waitForTerminal(t, inner, record.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status)
	assert.Contains(t, final.Error, "connection reset")
	assert.NotNil(t, final.CompletedAt)
	assert.False(t, executed.Load(), "work must not run without the running transition")
}

func TestRunnerSubmitAfterStop(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	runner := newTestRunner(t, taskStore, 1, 10)
	require.NoError(t, runner.Start())
	runner.Stop()

	record := pendingRecord(t, taskStore)
	err := runner.Submit(New(record.ID, record.OwnerID, record.Kind, func(ctx context.Context) error {
		return nil
	}))
	assert.ErrorIs(t, err, ErrRunnerStopped)
}

func TestRunnerStartFailsStaleRecords(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	stale := pendingRecord(t, taskStore)

	runner := newTestRunner(t, taskStore, 1, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	record := taskStore.mustGet(t, stale.ID)
	assert.Equal(t, domain.TaskStatusFailed, record.Status)
	assert.Equal(t, staleTaskCause, record.Error)
}
