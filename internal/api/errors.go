package api

import (
	"errors"
	"net/http"

	"github.com/slidesmith/slidesmith-api/internal/service"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// MapErrorToStatusCode maps service errors to HTTP status codes. Unknown
// errors become 500 so internal failure detail never shapes the response.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrPageNotFound),
		errors.Is(err, service.ErrVersionNotFound),
		errors.Is(err, service.ErrMaterialNotFound),
		errors.Is(err, service.ErrReferenceFileNotFound),
		errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound

	// Precondition failures: the request is well-formed but the resource
	// is not in a state that allows it.
	case errors.Is(err, service.ErrPageNotReady),
		errors.Is(err, service.ErrPageImageMissing),
		errors.Is(err, service.ErrNoGeneratedImages):
		return http.StatusUnprocessableEntity

	// Conflict errors
	case errors.Is(err, service.ErrParseInProgress):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrEmptyInstruction),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error. Internal detail stays in the logs.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		return "Project not found"
	case errors.Is(err, service.ErrPageNotFound):
		return "Page not found"
	case errors.Is(err, service.ErrVersionNotFound):
		return "Image version not found"
	case errors.Is(err, service.ErrMaterialNotFound):
		return "Material not found"
	case errors.Is(err, service.ErrReferenceFileNotFound):
		return "Reference file not found"
	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrPageNotReady):
		return "Page needs a description before its image can be generated"
	case errors.Is(err, service.ErrPageImageMissing):
		return "Page has no generated image to edit"
	case errors.Is(err, service.ErrNoGeneratedImages):
		return "Project has no generated images to export"
	case errors.Is(err, service.ErrParseInProgress):
		return "A parse is already in progress for this file"
	case errors.Is(err, service.ErrEmptyInstruction):
		return "Edit instruction cannot be empty"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	default:
		return "An unexpected error occurred"
	}
}
