package gemini

import "errors"

// Errors specific to the Gemini provider
var (
	// ErrEmptyPrompt is returned when a generation request has no prompt text
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrEmptyBaseImage is returned when an edit request has no base image
	ErrEmptyBaseImage = errors.New("edit request requires a base image")
)
