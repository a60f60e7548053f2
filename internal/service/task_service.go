package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// TaskService exposes task records for status polling.
type TaskService interface {
	// GetTask retrieves a task record by its ID.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)
}

type taskService struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks store.TaskStore, logger *slog.Logger) (TaskService, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskService{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

func (s *taskService) GetTask(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	record, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("get_task", "failed to load task", err)
	}
	return record, nil
}
