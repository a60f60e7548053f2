package task

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/events"
	"github.com/slidesmith/slidesmith-api/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory(t *testing.T, taskStore *fakeTaskStore, queueSize int) (*FactoryEventHandler, *Runner) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := NewRunner(taskStore, RunnerConfig{WorkerCount: 1, QueueSize: queueSize}, logger)
	deps := &pipeline.Deps{Tasks: taskStore, Logger: logger}
	return NewFactoryEventHandler(runner, deps, taskStore, logger), runner
}

func TestFactoryHandlerRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	handler, runner := newTestFactory(t, taskStore, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	record := pendingRecord(t, taskStore)
	event, err := events.NewTaskRequestEvent(record.ID, record.OwnerID, domain.TaskKind("bogus"), struct{}{})
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task kind")

	// The orphaned record must not stay pending.
	final := taskStore.mustGet(t, record.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status)
}

func TestFactoryHandlerFailsRecordWhenRunnerStopped(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	handler, runner := newTestFactory(t, taskStore, 1)
	require.NoError(t, runner.Start())
	runner.Stop()

	record := pendingRecord(t, taskStore)
	event, err := events.NewTaskRequestEvent(record.ID, record.OwnerID,
		domain.TaskKindGeneratePageImage, pipeline.GeneratePageImageInput{TaskID: record.ID})
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	require.ErrorIs(t, err, ErrRunnerStopped)

	final := taskStore.mustGet(t, record.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status)
	assert.NotNil(t, final.CompletedAt)
}

func TestFactoryHandlerSubmitsDecodedWork(t *testing.T) {
	t.Parallel()

	taskStore := newFakeTaskStore()
	handler, runner := newTestFactory(t, taskStore, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	record := pendingRecord(t, taskStore)
	event, err := events.NewTaskRequestEvent(record.ID, record.OwnerID,
		domain.TaskKindGeneratePageImage, pipeline.GeneratePageImageInput{
			TaskID:    record.ID,
			ProjectID: record.OwnerID,
			PageID:    uuid.New(),
		})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))

	// The pipeline will fail (no stores wired), but the record must reach a
	// terminal state through the runner either way.
	deadline := time.After(2 * time.Second)
	for {
		final := taskStore.mustGet(t, record.ID)
		if final.Status.IsTerminal() {
			assert.Equal(t, domain.TaskStatusFailed, final.Status)
			break
		}
		select {
		case <-deadline:
			t.Fatal("task never reached a terminal state")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
