package mineru

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/slidesmith/slidesmith-api/internal/config"
	"github.com/slidesmith/slidesmith-api/internal/generation"
)

// Parse task states reported by the service
const (
	stateDone    = "done"
	stateFailed  = "failed"
	statePending = "pending"
	stateRunning = "running"
)

// errParseInProgress signals the poll loop that the task has not finished yet.
var errParseInProgress = errors.New("parse still in progress")

// Parser implements the generation.DocumentParser interface against a
// MinerU-compatible HTTP API.
type Parser struct {
	baseURL      string
	token        string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewParser creates a Parser from document-parse configuration.
func NewParser(cfg config.DocParseConfig, logger *slog.Logger) (*Parser, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: docparse base URL cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Minute
	}

	return &Parser{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		logger:       logger.With(slog.String("component", "mineru_parser")),
	}, nil
}

// Ensure Parser implements generation.DocumentParser
var _ generation.DocumentParser = (*Parser)(nil)

// ParseDocument uploads the document and blocks until the service finishes
// parsing it, returning the extracted markdown.
func (p *Parser) ParseDocument(ctx context.Context, filename string, data []byte) (*generation.ParseResult, error) {
	taskID, err := p.createTask(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "document parse task created",
		slog.String("parse_task_id", taskID),
		slog.String("filename", filename))

	result, err := backoff.Retry(ctx,
		func() (*generation.ParseResult, error) {
			return p.pollTask(ctx, taskID)
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.pollInterval)),
		backoff.WithMaxElapsedTime(p.pollTimeout),
	)
	if err != nil {
		if errors.Is(err, errParseInProgress) {
			return nil, fmt.Errorf("%w: task %s still processing after %s",
				generation.ErrParseTimeout, taskID, p.pollTimeout)
		}
		return nil, err
	}

	return result, nil
}

// createTask uploads the document and returns the service-side task ID.
func (p *Parser) createTask(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/tasks", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	p.setAuth(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: upload failed: %v", generation.ErrParseFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: upload returned status %d", generation.ErrParseFailed, resp.StatusCode)
	}

	var created struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: malformed upload response: %v", generation.ErrParseFailed, err)
	}
	if created.TaskID == "" {
		return "", fmt.Errorf("%w: upload response missing task_id", generation.ErrParseFailed)
	}

	return created.TaskID, nil
}

// pollTask fetches the task once. While the task is still processing it
// returns a retryable error so the backoff loop keeps polling; terminal
// failures are returned as permanent errors.
func (p *Parser) pollTask(ctx context.Context, taskID string) (*generation.ParseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build poll request: %w", err))
	}
	p.setAuth(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// Network hiccups during polling are retryable.
		return nil, fmt.Errorf("poll failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("poll read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll returned status %d", resp.StatusCode)
	}

	var status struct {
		State    string `json:"state"`
		Markdown string `json:"markdown"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: malformed poll response: %v", generation.ErrParseFailed, err))
	}

	switch status.State {
	case stateDone:
		return &generation.ParseResult{Markdown: status.Markdown}, nil
	case stateFailed:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", generation.ErrParseFailed, status.Error))
	case statePending, stateRunning:
		return nil, errParseInProgress
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: unknown task state %q", generation.ErrParseFailed, status.State))
	}
}

func (p *Parser) setAuth(req *http.Request) {
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
}
