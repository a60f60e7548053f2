package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProjectService(t *testing.T) (ProjectService, *fakeProjectStore, *fakeArtifacts) {
	t.Helper()
	projects := newFakeProjectStore()
	artifacts := newFakeArtifacts()
	svc, err := NewProjectService(projects, artifacts, testLogger())
	require.NoError(t, err)
	return svc, projects, artifacts
}

func TestCreateProject(t *testing.T) {
	t.Parallel()

	svc, projects, _ := newTestProjectService(t)

	project, err := svc.CreateProject(context.Background(), "a deck about honeybees", "use warm colors")
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusDraft, project.Status)
	assert.Equal(t, "use warm colors", project.ExtraRequirements)

	stored, err := projects.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, "a deck about honeybees", stored.IdeaPrompt)
}

func TestCreateProjectRejectsEmptyIdea(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestProjectService(t)

	_, err := svc.CreateProject(context.Background(), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyIdeaPrompt)
}

func TestGetProjectNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestProjectService(t)

	_, err := svc.GetProject(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestUpdateProjectAppliesOnlyGivenFields(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestProjectService(t)
	project, err := svc.CreateProject(context.Background(), "quarterly results", "")
	require.NoError(t, err)

	style := "minimalist, dark blue background"
	updated, err := svc.UpdateProject(context.Background(), project.ID, ProjectUpdate{TemplateStyle: &style})
	require.NoError(t, err)

	assert.Equal(t, "quarterly results", updated.IdeaPrompt)
	assert.Equal(t, style, updated.TemplateStyle)
	assert.True(t, updated.HasStyleReference())
}

func TestUploadTemplateImage(t *testing.T) {
	t.Parallel()

	svc, projects, artifacts := newTestProjectService(t)
	project, err := svc.CreateProject(context.Background(), "product launch", "")
	require.NoError(t, err)

	updated, err := svc.UploadTemplateImage(context.Background(), project.ID, "template.png", []byte("png-bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, updated.TemplateImagePath)

	data, err := artifacts.Read(context.Background(), updated.TemplateImagePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	stored, err := projects.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.TemplateImagePath, stored.TemplateImagePath)
}

func TestDeleteProject(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestProjectService(t)
	project, err := svc.CreateProject(context.Background(), "team offsite", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(context.Background(), project.ID))

	_, err = svc.GetProject(context.Background(), project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
