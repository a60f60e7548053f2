package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type materialServiceFixture struct {
	svc       MaterialService
	materials *fakeMaterialStore
	tasks     *fakeTaskStore
	emitter   *fakeEmitter
	project   *domain.Project
}

func newMaterialServiceFixture(t *testing.T) *materialServiceFixture {
	t.Helper()

	f := &materialServiceFixture{
		materials: newFakeMaterialStore(),
		tasks:     newFakeTaskStore(),
		emitter:   &fakeEmitter{},
	}
	projects := newFakeProjectStore()

	svc, err := NewMaterialService(unusedDB(t), projects, f.materials, f.tasks, f.emitter, testLogger())
	require.NoError(t, err)
	f.svc = svc

	project, err := domain.NewProject("a deck about glaciers")
	require.NoError(t, err)
	require.NoError(t, projects.Create(context.Background(), project))
	f.project = project

	return f
}

func TestCreateMaterial(t *testing.T) {
	t.Parallel()

	f := newMaterialServiceFixture(t)

	material, err := f.svc.CreateMaterial(context.Background(), f.project.ID, "ice shelf chart", "a bar chart of ice loss")
	require.NoError(t, err)
	assert.Equal(t, domain.MaterialStatusPending, material.Status)
	assert.Empty(t, material.ImagePath)

	listed, err := f.svc.ListMaterials(context.Background(), f.project.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, material.ID, listed[0].ID)
}

func TestCreateMaterialUnknownProject(t *testing.T) {
	t.Parallel()

	f := newMaterialServiceFixture(t)

	_, err := f.svc.CreateMaterial(context.Background(), uuid.New(), "chart", "prompt")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestGenerateMaterialForeignProject(t *testing.T) {
	t.Parallel()

	f := newMaterialServiceFixture(t)
	material, err := f.svc.CreateMaterial(context.Background(), f.project.ID, "chart", "prompt")
	require.NoError(t, err)

	_, err = f.svc.GenerateMaterial(context.Background(), uuid.New(), material.ID)
	require.ErrorIs(t, err, ErrMaterialNotFound)
	assert.Zero(t, f.tasks.count())
	assert.Zero(t, f.emitter.count())
}

func TestDeleteMaterial(t *testing.T) {
	t.Parallel()

	f := newMaterialServiceFixture(t)
	material, err := f.svc.CreateMaterial(context.Background(), f.project.ID, "chart", "prompt")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMaterial(context.Background(), f.project.ID, material.ID))

	listed, err := f.svc.ListMaterials(context.Background(), f.project.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
