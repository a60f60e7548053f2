// Package service provides the application-level operations behind the HTTP
// handlers: project and page management, generation task creation, exports,
// and reference file parsing.
package service

import (
	"errors"
	"fmt"

	"github.com/slidesmith/slidesmith-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check them with errors.Is; the API layer maps them to HTTP status
// codes.
var (
	// ErrProjectNotFound indicates that the project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrPageNotFound indicates that the page does not exist, or does not
	// belong to the project named in the request.
	ErrPageNotFound = errors.New("page not found")

	// ErrVersionNotFound indicates that the image version does not exist, or
	// does not belong to the page named in the request.
	ErrVersionNotFound = errors.New("image version not found")

	// ErrMaterialNotFound indicates that the material does not exist.
	ErrMaterialNotFound = errors.New("material not found")

	// ErrReferenceFileNotFound indicates that the reference file does not exist.
	ErrReferenceFileNotFound = errors.New("reference file not found")

	// ErrTaskNotFound indicates that the task record does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrPageNotReady indicates an image generation request for a page that
	// has no description yet. No task is created.
	ErrPageNotReady = errors.New("page has no description to generate from")

	// ErrPageImageMissing indicates an edit request for a page that has no
	// generated image yet. No task is created.
	ErrPageImageMissing = errors.New("page has no generated image to edit")

	// ErrEmptyInstruction indicates an edit request without an instruction.
	ErrEmptyInstruction = errors.New("edit instruction cannot be empty")

	// ErrNoGeneratedImages indicates an export request for a project in which
	// no page has a generated image.
	ErrNoGeneratedImages = errors.New("project has no generated images to export")

	// ErrParseInProgress indicates a reparse request for a reference file
	// whose previous parse has not finished.
	ErrParseInProgress = errors.New("a parse is already in progress for this file")
)

// ServiceError wraps unexpected errors from a service operation with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g. "create_project").
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError maps store sentinels to their service counterparts and
// wraps everything else. Returns nil for a nil err.
func newServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, store.ErrProjectNotFound):
		return ErrProjectNotFound
	case errors.Is(err, store.ErrPageNotFound):
		return ErrPageNotFound
	case errors.Is(err, store.ErrVersionNotFound):
		return ErrVersionNotFound
	case errors.Is(err, store.ErrMaterialNotFound):
		return ErrMaterialNotFound
	case errors.Is(err, store.ErrReferenceFileNotFound):
		return ErrReferenceFileNotFound
	case errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	}

	// Service-level sentinels pass through untouched.
	for _, sentinel := range []error{
		ErrProjectNotFound, ErrPageNotFound, ErrVersionNotFound,
		ErrMaterialNotFound, ErrReferenceFileNotFound, ErrTaskNotFound,
		ErrPageNotReady, ErrPageImageMissing, ErrEmptyInstruction,
		ErrNoGeneratedImages, ErrParseInProgress,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
