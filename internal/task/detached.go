package task

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// ErrJobAlreadyRunning is returned when a detached job is launched for a key
// that already has one in flight.
var ErrJobAlreadyRunning = errors.New("a job is already running for this key")

// DetachedRunner executes fire-and-forget jobs outside the worker pool, one
// goroutine per job, with at most one in-flight job per key. It backs
// reference-file parsing, where each file has its own parse state machine
// instead of a task record and a long parse must not occupy a pool worker.
type DetachedRunner struct {
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
	wg       sync.WaitGroup
	stopped  bool
}

// NewDetachedRunner creates a new DetachedRunner.
func NewDetachedRunner(logger *slog.Logger) *DetachedRunner {
	if logger == nil {
		logger = slog.Default()
	}

	return &DetachedRunner{
		logger:   logger.With(slog.String("component", "detached_runner")),
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// Launch starts fn in its own goroutine, keyed by key. Returns
// ErrJobAlreadyRunning if a job for the key is still in flight and
// ErrRunnerStopped after Stop. fn owns all of its state transitions; panics
// are absorbed and logged.
func (r *DetachedRunner) Launch(key uuid.UUID, fn func(ctx context.Context)) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrRunnerStopped
	}
	if _, running := r.inFlight[key]; running {
		r.mu.Unlock()
		return ErrJobAlreadyRunning
	}
	r.inFlight[key] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.inFlight, key)
			r.mu.Unlock()
		}()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("detached job panicked",
					slog.String("key", key.String()),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
			}
		}()

		fn(context.Background())
	}()

	return nil
}

// IsRunning reports whether a job for the key is currently in flight.
func (r *DetachedRunner) IsRunning(key uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, running := r.inFlight[key]
	return running
}

// Stop rejects new jobs and waits for in-flight jobs to finish.
func (r *DetachedRunner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.wg.Wait()
}
