package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/events"
	"github.com/slidesmith/slidesmith-api/internal/pipeline"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// FactoryEventHandler turns task request events into pipeline tasks and
// submits them to the runner. Services emit events instead of constructing
// pipeline work directly, so they never depend on pipeline internals.
//
// If a task cannot be enqueued (full queue, stopped runner) the handler
// marks its record failed: the record was created before the event was
// emitted and must not stay pending forever.
type FactoryEventHandler struct {
	runner *Runner
	deps   *pipeline.Deps
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewFactoryEventHandler creates a new FactoryEventHandler.
func NewFactoryEventHandler(runner *Runner, deps *pipeline.Deps, tasks store.TaskStore, logger *slog.Logger) *FactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &FactoryEventHandler{
		runner: runner,
		deps:   deps,
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_factory")),
	}
}

// Ensure FactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*FactoryEventHandler)(nil)

// HandleEvent builds the pipeline task for the event's kind and submits it.
func (h *FactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	work, err := h.buildWork(event)
	if err != nil {
		h.failRecord(ctx, event, err)
		return err
	}

	if err := h.runner.Submit(New(event.TaskID, event.OwnerID, event.Kind, work)); err != nil {
		h.failRecord(ctx, event, err)
		return fmt.Errorf("failed to submit %s task: %w", event.Kind, err)
	}

	h.logger.Debug("task submitted",
		slog.String("task_id", event.TaskID.String()),
		slog.String("kind", string(event.Kind)))

	return nil
}

// buildWork decodes the event payload into the matching pipeline invocation.
// The event's TaskID is authoritative and stamped onto the input, so payload
// producers never carry it.
func (h *FactoryEventHandler) buildWork(event *events.TaskRequestEvent) (func(ctx context.Context) error, error) {
	switch event.Kind {
	case domain.TaskKindGeneratePageImage:
		var in pipeline.GeneratePageImageInput
		if err := event.UnmarshalPayload(&in); err != nil {
			return nil, fmt.Errorf("malformed payload for %s: %w", event.Kind, err)
		}
		in.TaskID = event.TaskID
		return func(ctx context.Context) error {
			return h.deps.GeneratePageImage(ctx, in)
		}, nil

	case domain.TaskKindEditPageImage:
		var in pipeline.EditPageImageInput
		if err := event.UnmarshalPayload(&in); err != nil {
			return nil, fmt.Errorf("malformed payload for %s: %w", event.Kind, err)
		}
		in.TaskID = event.TaskID
		return func(ctx context.Context) error {
			return h.deps.EditPageImage(ctx, in)
		}, nil

	case domain.TaskKindGenerateMaterial:
		var in pipeline.GenerateMaterialInput
		if err := event.UnmarshalPayload(&in); err != nil {
			return nil, fmt.Errorf("malformed payload for %s: %w", event.Kind, err)
		}
		in.TaskID = event.TaskID
		return func(ctx context.Context) error {
			return h.deps.GenerateMaterial(ctx, in)
		}, nil

	case domain.TaskKindExportEditableDeck:
		var in pipeline.ExportEditableDeckInput
		if err := event.UnmarshalPayload(&in); err != nil {
			return nil, fmt.Errorf("malformed payload for %s: %w", event.Kind, err)
		}
		in.TaskID = event.TaskID
		return func(ctx context.Context) error {
			return h.deps.ExportEditableDeck(ctx, in)
		}, nil

	default:
		return nil, fmt.Errorf("unknown task kind %q", event.Kind)
	}
}

func (h *FactoryEventHandler) failRecord(ctx context.Context, event *events.TaskRequestEvent, cause error) {
	if err := h.tasks.MarkFailed(ctx, event.TaskID, cause.Error()); err != nil {
		h.logger.Error("failed to mark unsubmittable task failed",
			slog.String("task_id", event.TaskID.String()),
			slog.String("error", err.Error()))
	}
}
