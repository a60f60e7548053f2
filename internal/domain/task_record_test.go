package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskRecord(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	record, err := NewTaskRecord(ownerID, TaskKindGeneratePageImage, 1)
	require.NoError(t, err)

	assert.Equal(t, ownerID, record.OwnerID)
	assert.Equal(t, TaskStatusPending, record.Status)
	assert.Equal(t, Progress{Total: 1}, record.Progress)
	assert.Nil(t, record.CompletedAt)
	assert.False(t, record.IsTerminal())
}

func TestNewTaskRecord_GlobalOwner(t *testing.T) {
	t.Parallel()

	record, err := NewTaskRecord(GlobalOwnerID, TaskKindExportEditableDeck, 5)
	require.NoError(t, err)
	assert.Equal(t, GlobalOwnerID, record.OwnerID)
}

func TestNewTaskRecord_InvalidKind(t *testing.T) {
	t.Parallel()

	_, err := NewTaskRecord(uuid.New(), TaskKind("bogus"), 1)
	assert.ErrorIs(t, err, ErrInvalidTaskKind)
}

func TestTaskRecord_CompletedAtSetIffTerminal(t *testing.T) {
	t.Parallel()

	record, err := NewTaskRecord(uuid.New(), TaskKindEditPageImage, 1)
	require.NoError(t, err)
	assert.Nil(t, record.CompletedAt)

	require.NoError(t, record.MarkRunning())
	assert.Nil(t, record.CompletedAt)
	assert.Equal(t, TaskStatusRunning, record.Status)

	require.NoError(t, record.MarkCompleted())
	require.NotNil(t, record.CompletedAt)
	assert.True(t, record.IsTerminal())

	// Terminal transitions happen exactly once.
	first := *record.CompletedAt
	assert.ErrorIs(t, record.MarkCompleted(), ErrTaskAlreadyTerminal)
	assert.ErrorIs(t, record.MarkFailed("late"), ErrTaskAlreadyTerminal)
	assert.Equal(t, first, *record.CompletedAt)
}

func TestTaskRecord_MarkFailedRecordsCause(t *testing.T) {
	t.Parallel()

	record, err := NewTaskRecord(uuid.New(), TaskKindGenerateMaterial, 1)
	require.NoError(t, err)
	require.NoError(t, record.MarkRunning())

	require.NoError(t, record.MarkFailed("provider timeout"))
	assert.Equal(t, TaskStatusFailed, record.Status)
	assert.Equal(t, "provider timeout", record.Error)
	assert.NotNil(t, record.CompletedAt)
}

func TestTaskRecord_CompleteRequiresRunning(t *testing.T) {
	t.Parallel()

	record, err := NewTaskRecord(uuid.New(), TaskKindGeneratePageImage, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, record.MarkCompleted(), ErrTaskNotYetRunning)
}

func TestProgress_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		progress Progress
		wantErr  bool
	}{
		{"zero", Progress{}, false},
		{"partial", Progress{Total: 5, Completed: 3, Failed: 2}, false},
		{"in flight", Progress{Total: 5, Completed: 1, Failed: 1}, false},
		{"overflow", Progress{Total: 5, Completed: 4, Failed: 2}, true},
		{"negative", Progress{Total: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.progress.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTaskProgress)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
