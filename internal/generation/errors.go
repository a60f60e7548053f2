package generation

import "errors"

// Common errors returned by generation providers
var (
	// ErrGenerationFailed is returned when image generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate image")

	// ErrNoImageInResponse is returned when the model responds without any inline image data
	ErrNoImageInResponse = errors.New("no image in model response")

	// ErrContentBlocked is returned when the model blocks the request due to safety filters
	ErrContentBlocked = errors.New("content blocked by model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during generation")

	// ErrParseFailed is returned when document parsing fails terminally
	ErrParseFailed = errors.New("failed to parse document")

	// ErrParseTimeout is returned when document parsing does not finish within the poll window
	ErrParseTimeout = errors.New("document parse timed out")

	// ErrInvalidConfig is returned when a provider configuration is invalid
	ErrInvalidConfig = errors.New("invalid provider configuration")
)
