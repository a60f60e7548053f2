package generation

import "context"

// ImageRequest describes a single text-to-image generation call. Reference
// images (template image, material images named in the prompt) are passed as
// raw bytes and sent to the model alongside the prompt.
type ImageRequest struct {
	Prompt          string
	ReferenceImages [][]byte
}

// EditRequest describes an instruction-driven edit of an existing image.
// The base image is required; extra reference images are optional.
type EditRequest struct {
	Instruction     string
	BaseImage       []byte
	ReferenceImages [][]byte
}

// Image is a generated or edited image returned by a provider.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator generates and edits slide images through an external
// image model.
type ImageGenerator interface {
	// GenerateImage renders a new image from a prompt and optional reference
	// images. Implementations retry transient failures internally.
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)

	// EditImage applies an edit instruction to an existing image and returns
	// the full edited image.
	EditImage(ctx context.Context, req EditRequest) (*Image, error)
}

// ParseResult is the outcome of a successful document parse.
type ParseResult struct {
	Markdown string
}

// DocumentParser converts an uploaded document into markdown through an
// external parsing service. Parsing is asynchronous on the provider side;
// implementations block until the result is ready, the context is cancelled,
// or the configured poll window elapses (ErrParseTimeout).
type DocumentParser interface {
	ParseDocument(ctx context.Context, filename string, data []byte) (*ParseResult, error)
}
