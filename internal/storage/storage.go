// Package storage persists generated artifacts (page images, template
// uploads, exported decks) and maps stored paths to public URLs.
package storage

import (
	"context"
	"errors"
)

// Common storage errors
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidPath      = errors.New("invalid artifact path")
)

// ArtifactStore stores binary artifacts under project-scoped relative paths
// of the form {projectID}/{category}/{filename}. Paths returned by Save are
// stable identifiers: they are what gets persisted on domain entities and
// what URLFor resolves for API clients.
type ArtifactStore interface {
	// Save writes data under the given project and category, returning the
	// stored relative path.
	Save(ctx context.Context, projectID, category, filename string, data []byte) (string, error)

	// Read returns the contents of a previously saved artifact.
	// Returns ErrArtifactNotFound if no artifact exists at the path.
	Read(ctx context.Context, path string) ([]byte, error)

	// URLFor maps a stored path to the public URL clients fetch it from.
	// URLFor("") returns the bare base URL prefix, so callers can map a
	// public URL back to its stored path by trimming it.
	URLFor(path string) string
}
