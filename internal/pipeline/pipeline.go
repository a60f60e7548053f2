package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slidesmith/slidesmith-api/internal/config"
	"github.com/slidesmith/slidesmith-api/internal/generation"
	"github.com/slidesmith/slidesmith-api/internal/storage"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// Artifact categories under which pipelines store their outputs.
const (
	categoryPages     = "pages"
	categoryMaterials = "materials"
	categoryExports   = "exports"
)

// Deps carries everything a pipeline needs. One value is built at startup
// and shared by all pipelines.
type Deps struct {
	Projects  store.ProjectStore
	Pages     store.PageStore
	Versions  store.ImageVersionStore
	Materials store.MaterialStore
	Tasks     store.TaskStore

	Artifacts storage.ArtifactStore
	Generator generation.ImageGenerator
	Parser    generation.DocumentParser

	// Provider carries the default aspect ratio, resolution and output
	// language applied to prompts.
	Provider config.ProviderConfig

	// ExportWorkers bounds the clean-background fan-out in the editable
	// deck export.
	ExportWorkers int

	// HTTPClient fetches reference images given by absolute URL. Optional;
	// a default client with a timeout is used when nil.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// logger returns the configured logger or the process default.
func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// httpClient returns the configured HTTP client or a bounded default.
func (d *Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// fetchImage resolves an image reference to raw bytes. Stored artifact paths
// and public artifact URLs are read from the artifact store; absolute URLs
// are fetched over HTTP.
func (d *Deps) fetchImage(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty image reference")
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build image request: %w", err)
		}
		resp, err := d.httpClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image %s: %w", ref, err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("image fetch %s returned status %d", ref, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	// Public URLs produced by URLFor map back to stored paths by trimming
	// the base prefix; everything else is treated as a stored path already.
	path := ref
	if base := d.Artifacts.URLFor(""); base != "" && strings.HasPrefix(ref, base+"/") {
		path = strings.TrimPrefix(ref, base+"/")
	}
	return d.Artifacts.Read(ctx, strings.TrimLeft(path, "/"))
}

// imageExtension maps a MIME type to a file extension for stored artifacts.
func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
