package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/slidesmith/slidesmith-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Public artifact URLs embedded in page descriptions must resolve back to
// the stored bytes, using the same store that produced the URL.
func TestFetchImageResolvesPublicArtifactURLs(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	artifacts, err := storage.NewLocalStore(t.TempDir(), "/files", log)
	require.NoError(t, err)

	ctx := context.Background()
	want := []byte("material-bytes")
	path, err := artifacts.Save(ctx, "proj-1", "materials", "m.png", want)
	require.NoError(t, err)

	deps := &Deps{Artifacts: artifacts, Logger: log}

	got, err := deps.fetchImage(ctx, artifacts.URLFor(path))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Stored paths passed directly still resolve.
	got, err = deps.fetchImage(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFetchImageRejectsEmptyReference(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	artifacts, err := storage.NewLocalStore(t.TempDir(), "/files", log)
	require.NoError(t, err)

	deps := &Deps{Artifacts: artifacts, Logger: log}

	_, err = deps.fetchImage(context.Background(), "")
	assert.Error(t, err)
}
