package taskrepo_test

import (
	"testing"

	"github.com/AltairaLabs/voice-gateway/internal/taskrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_TaskLifecycle(t *testing.T) {
	repo := taskrepo.NewMemoryRepository()

	task, err := repo.CreateTask("user-1", "buy milk", "2%", false)
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)

	got, err := repo.GetTask("user-1", task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "buy milk", got.Title)

	title := "buy oat milk"
	updated, err := repo.UpdateTask("user-1", task.ID, taskrepo.TaskPatch{Title: &title})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "buy oat milk", updated.Title)

	list, err := repo.ListTasks("user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryRepository_UserIsolation(t *testing.T) {
	repo := taskrepo.NewMemoryRepository()

	task, err := repo.CreateTask("user-1", "private", "", false)
	require.NoError(t, err)

	got, err := repo.GetTask("user-2", task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err := repo.DeleteTask("user-2", task.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRepository_CascadingDelete(t *testing.T) {
	repo := taskrepo.NewMemoryRepository()

	task, err := repo.CreateTask("user-1", "errands", "", false)
	require.NoError(t, err)

	_, err = repo.CreateNote("user-1", task.ID, "first note")
	require.NoError(t, err)
	_, err = repo.CreateNote("user-1", task.ID, "second note")
	require.NoError(t, err)

	notes, err := repo.ListNotes("user-1", task.ID, 0)
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	ok, err := repo.DeleteTask("user-1", task.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.ListNotes("user-1", task.ID, 0)
	assert.ErrorIs(t, err, taskrepo.ErrTaskNotFound)
}

func TestMemoryRepository_CreateNoteOnMissingTask(t *testing.T) {
	repo := taskrepo.NewMemoryRepository()

	n, err := repo.CreateNote("user-1", "missing-task-id", "note")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestMemoryRepository_ListNotesRespectsLimit(t *testing.T) {
	repo := taskrepo.NewMemoryRepository()
	task, err := repo.CreateTask("user-1", "errands", "", false)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := repo.CreateNote("user-1", task.ID, "note")
		require.NoError(t, err)
	}

	notes, err := repo.ListNotes("user-1", task.ID, 3)
	require.NoError(t, err)
	assert.Len(t, notes, 3)
}
