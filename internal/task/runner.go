package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/slidesmith/slidesmith-api/internal/store"
)

// Submission errors
var (
	// ErrQueueFull is returned when the in-memory queue has no capacity left
	ErrQueueFull = errors.New("task queue is full, try again later")

	// ErrRunnerStopped is returned when submitting to a stopped runner
	ErrRunnerStopped = errors.New("task runner is stopped")
)

// staleTaskCause is written to tasks found non-terminal at startup.
const staleTaskCause = "interrupted by server restart"

// RunnerConfig holds configuration for the task runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks.
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue.
	// Submissions beyond this are rejected with ErrQueueFull rather than
	// blocking the caller.
	QueueSize int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 4,
		QueueSize:   100,
	}
}

// Runner processes background tasks on a fixed-size worker pool fed by a
// bounded FIFO queue. Each accepted task's persisted record moves
// pending -> running -> {completed, failed} exactly once; panics inside a
// task are absorbed and recorded as failures without taking the worker down.
type Runner struct {
	store      store.TaskStore
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewRunner creates a new Runner.
func NewRunner(taskStore store.TaskStore, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultRunnerConfig().WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRunnerConfig().QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      taskStore,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With(slog.String("component", "task_runner")),
	}
}

// Start fails over stale records from a previous process and launches the
// worker pool.
func (r *Runner) Start() error {
	count, err := r.store.FailStale(r.ctx, staleTaskCause)
	if err != nil {
		return fmt.Errorf("failed to fail stale tasks: %w", err)
	}
	if count > 0 {
		r.logger.Info("failed stale tasks from previous run",
			slog.Int64("count", count))
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.logger.Info("task runner started",
		slog.Int("worker_count", r.config.WorkerCount),
		slog.Int("queue_size", r.config.QueueSize))

	return nil
}

// Submit enqueues a task for execution. The task's record must already be
// persisted in pending state; Submit only hands the work to the pool. Returns
// ErrQueueFull when the queue has no capacity and ErrRunnerStopped after
// Stop.
func (r *Runner) Submit(task Task) error {
	// The send happens under the mutex so Stop cannot close the channel
	// between the stopped check and the send.
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRunnerStopped
	}

	select {
	case r.taskChan <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop gracefully shuts down the runner. In-flight tasks finish; queued tasks
// that never ran are marked failed so no record is left pending forever.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancelFunc()
	r.wg.Wait()

	// No submitter can reach the channel once stopped is set, so closing and
	// draining here is safe.
	r.mu.Lock()
	close(r.taskChan)
	r.mu.Unlock()

	for task := range r.taskChan {
		if err := r.store.MarkFailed(context.Background(), task.ID(), "server shut down before task started"); err != nil {
			r.logger.Error("failed to fail queued task during shutdown",
				slog.String("task_id", task.ID().String()),
				slog.String("error", err.Error()))
		}
	}

	r.logger.Info("task runner stopped")
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", slog.Int("worker_id", id))

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", slog.Int("worker_id", id))
			return

		case task, ok := <-r.taskChan:
			if !ok {
				return
			}
			r.processTask(task, id)
		}
	}
}

// processTask drives one task through its lifecycle. The terminal transition
// happens in exactly one place per outcome, and the store's guarded updates
// make a second transition a no-op.
func (r *Runner) processTask(task Task, workerID int) {
	ctx := context.Background()
	log := r.logger.With(
		slog.String("task_id", task.ID().String()),
		slog.String("task_kind", string(task.Kind())),
		slog.Int("worker_id", workerID),
	)

	if err := r.store.MarkRunning(ctx, task.ID()); err != nil {
		log.Error("failed to mark task running", slog.String("error", err.Error()))
		// The record must still reach a terminal state; left pending it
		// would sit unresolved until the next restart's stale sweep.
		cause := "failed to transition task to running: " + err.Error()
		if failErr := r.store.MarkFailed(ctx, task.ID(), cause); failErr != nil {
			log.Error("failed to mark task failed", slog.String("error", failErr.Error()))
		}
		return
	}

	log.Info("processing task")

	err := r.executeWithRecovery(ctx, task, log)
	if err != nil {
		log.Error("task execution failed", slog.String("error", err.Error()))
		if updateErr := r.store.MarkFailed(ctx, task.ID(), err.Error()); updateErr != nil {
			log.Error("failed to mark task failed", slog.String("error", updateErr.Error()))
		}
		return
	}

	log.Info("task completed")
	if updateErr := r.store.MarkCompleted(ctx, task.ID()); updateErr != nil {
		log.Error("failed to mark task completed", slog.String("error", updateErr.Error()))
	}
}

// executeWithRecovery runs the task, converting panics into errors so one
// misbehaving pipeline cannot take down a worker.
func (r *Runner) executeWithRecovery(ctx context.Context, task Task, log *slog.Logger) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("task panicked",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()

	return task.Execute(ctx)
}
