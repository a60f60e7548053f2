package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore is a filesystem-backed ArtifactStore rooted at a single
// directory. Stored paths always use forward slashes regardless of platform.
type LocalStore struct {
	root          string
	publicBaseURL string
	logger        *slog.Logger
}

// NewLocalStore creates a LocalStore rooted at root. The root directory is
// created if it does not exist.
func NewLocalStore(root, publicBaseURL string, logger *slog.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &LocalStore{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With(slog.String("component", "artifact_store")),
	}, nil
}

// Ensure LocalStore implements ArtifactStore
var _ ArtifactStore = (*LocalStore)(nil)

// Save writes data under {projectID}/{category}/{filename} below the root.
func (s *LocalStore) Save(ctx context.Context, projectID, category, filename string, data []byte) (string, error) {
	relPath, err := s.cleanRelPath(filepath.ToSlash(filepath.Join(projectID, category, filename)))
	if err != nil {
		return "", err
	}

	absPath := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Debug("artifact saved",
		slog.String("path", relPath),
		slog.Int("bytes", len(data)))

	return relPath, nil
}

// Read returns the contents of a previously saved artifact.
func (s *LocalStore) Read(ctx context.Context, path string) ([]byte, error) {
	relPath, err := s.cleanRelPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", relPath, err)
	}

	return data, nil
}

// URLFor maps a stored path to the public URL clients fetch it from. An
// empty path returns the bare base URL, which callers use to map public
// URLs back to stored paths.
func (s *LocalStore) URLFor(path string) string {
	if path == "" {
		return s.publicBaseURL
	}
	return s.publicBaseURL + "/" + strings.TrimLeft(path, "/")
}

// cleanRelPath normalizes a stored path and rejects anything escaping the
// root.
func (s *LocalStore) cleanRelPath(path string) (string, error) {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if cleaned == "." || cleaned == "" ||
		strings.HasPrefix(cleaned, "/") || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
