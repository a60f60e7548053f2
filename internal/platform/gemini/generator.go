package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/slidesmith/slidesmith-api/internal/config"
	"github.com/slidesmith/slidesmith-api/internal/generation"
	"google.golang.org/genai"
)

// baseRetryDelay is the first retry delay; each subsequent attempt doubles
// it, scaled by jitter.
const baseRetryDelay = 2 * time.Second

// ImageProvider implements the generation.ImageGenerator interface using
// Google's Gemini API.
type ImageProvider struct {
	logger *slog.Logger
	config config.ProviderConfig
	client *genai.Client
}

// NewImageProvider creates a new ImageProvider with the provided
// configuration.
func NewImageProvider(ctx context.Context, logger *slog.Logger, cfg config.ProviderConfig) (*ImageProvider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: image model cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &ImageProvider{
		logger: logger.With(slog.String("component", "gemini_provider")),
		config: cfg,
		client: client,
	}, nil
}

// Ensure ImageProvider implements generation.ImageGenerator
var _ generation.ImageGenerator = (*ImageProvider)(nil)

// GenerateImage renders a new image from a prompt and optional reference
// images.
func (p *ImageProvider) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	parts = append(parts, imageParts(req.ReferenceImages)...)

	return p.callWithRetry(ctx, parts)
}

// EditImage applies an edit instruction to an existing image. The base image
// is sent first so the model treats it as the image being modified.
func (p *ImageProvider) EditImage(ctx context.Context, req generation.EditRequest) (*generation.Image, error) {
	if req.Instruction == "" {
		return nil, ErrEmptyPrompt
	}
	if len(req.BaseImage) == 0 {
		return nil, ErrEmptyBaseImage
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Instruction)}
	parts = append(parts, imageParts(append([][]byte{req.BaseImage}, req.ReferenceImages...))...)

	return p.callWithRetry(ctx, parts)
}

// callWithRetry makes a Gemini API call with exponential backoff for
// transient errors. Permanent errors (safety blocks, responses without image
// data) are returned immediately.
func (p *ImageProvider) callWithRetry(ctx context.Context, parts []*genai.Part) (*generation.Image, error) {
	maxRetries := p.config.MaxRetries
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		image, err := p.callOnce(ctx, parts)
		if err == nil {
			return image, nil
		}
		lastErr = err

		if errors.Is(err, generation.ErrContentBlocked) ||
			errors.Is(err, generation.ErrNoImageInResponse) {
			p.logger.WarnContext(ctx, "permanent provider error, not retrying",
				slog.String("error", err.Error()))
			return nil, err
		}
		if attempt >= maxRetries {
			break
		}

		// delay = base * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(baseRetryDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		p.logger.InfoContext(ctx, "retrying provider call",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: exceeded %d retry attempts: %v",
		generation.ErrTransientFailure, maxRetries, lastErr)
}

// callOnce performs a single bounded API call and extracts the first inline
// image from the response.
func (p *ImageProvider) callOnce(ctx context.Context, parts []*genai.Part) (*generation.Image, error) {
	callCtx := ctx
	if p.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.config.CallTimeout)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	resp, err := p.client.Models.GenerateContent(callCtx, p.config.ImageModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	return extractImage(resp)
}

// extractImage pulls the first inline image out of a generation response.
func extractImage(resp *genai.GenerateContentResponse) (*generation.Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: empty response", generation.ErrNoImageInResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: candidate without content", generation.ErrNoImageInResponse)
	}

	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &generation.Image{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
			}, nil
		}
	}

	return nil, generation.ErrNoImageInResponse
}

// imageParts converts raw image bytes to inline request parts, sniffing the
// MIME type from content.
func imageParts(images [][]byte) []*genai.Part {
	parts := make([]*genai.Part, 0, len(images))
	for _, data := range images {
		if len(data) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(data, http.DetectContentType(data)))
	}
	return parts
}
