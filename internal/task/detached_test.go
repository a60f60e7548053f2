package task

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetachedRunner() *DetachedRunner {
	return NewDetachedRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDetachedRunnerRunsJob(t *testing.T) {
	t.Parallel()

	runner := newTestDetachedRunner()
	done := make(chan struct{})

	err := runner.Launch(uuid.New(), func(ctx context.Context) {
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
	runner.Stop()
}

func TestDetachedRunnerRejectsConcurrentJobForSameKey(t *testing.T) {
	t.Parallel()

	runner := newTestDetachedRunner()
	key := uuid.New()
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, runner.Launch(key, func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	err := runner.Launch(key, func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
	assert.True(t, runner.IsRunning(key))

	// A different key is unaffected.
	other := make(chan struct{})
	require.NoError(t, runner.Launch(uuid.New(), func(ctx context.Context) {
		close(other)
	}))
	<-other

	close(release)
	runner.Stop()
	assert.False(t, runner.IsRunning(key))
}

func TestDetachedRunnerKeyReusableAfterCompletion(t *testing.T) {
	t.Parallel()

	runner := newTestDetachedRunner()
	key := uuid.New()
	var runs atomic.Int32

	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		require.NoError(t, runner.Launch(key, func(ctx context.Context) {
			runs.Add(1)
			close(done)
		}))
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job never finished")
		}
		// The in-flight entry is cleared after the job body returns; give
		// the deferred cleanup a moment.
		require.Eventually(t, func() bool { return !runner.IsRunning(key) },
			time.Second, 5*time.Millisecond)
	}

	assert.Equal(t, int32(2), runs.Load())
	runner.Stop()
}

func TestDetachedRunnerAbsorbsPanics(t *testing.T) {
	t.Parallel()

	runner := newTestDetachedRunner()
	key := uuid.New()

	require.NoError(t, runner.Launch(key, func(ctx context.Context) {
		panic("parse exploded")
	}))

	// The panicked job must release its key so the file can be reparsed.
	require.Eventually(t, func() bool { return !runner.IsRunning(key) },
		time.Second, 5*time.Millisecond)
	require.NoError(t, runner.Launch(key, func(ctx context.Context) {}))
	runner.Stop()
}

func TestDetachedRunnerRejectsAfterStop(t *testing.T) {
	t.Parallel()

	runner := newTestDetachedRunner()
	runner.Stop()

	err := runner.Launch(uuid.New(), func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrRunnerStopped)
}
