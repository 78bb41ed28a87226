package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avanti-suite/timekeep/internal/models"
)

func TestCreateTaskDefaultsToNew(t *testing.T) {
	st := newTestStore(t)

	task, err := st.CreateTask(context.Background(), "check invoice", "ticket 4711")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, task.Status)
	assert.Equal(t, "ticket 4711", task.Note)
	assert.Nil(t, task.DoneAt)
}

func TestSetTaskStatus(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	done, err := st.SetTaskStatus(ctx, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.DoneAt)

	reopened, err := st.SetTaskStatus(ctx, task.ID, models.StatusNew)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, reopened.Status)
	assert.Nil(t, reopened.DoneAt)
}

func TestSetTaskStatusRejectsUnknown(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)

	_, err := st.SetTaskStatus(context.Background(), task.ID, models.TaskStatus("bogus"))
	assert.Error(t, err)
}

func TestListTasksNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateTask(ctx, "first", "")
	require.NoError(t, err)
	_, err = st.CreateTask(ctx, "second", "")
	require.NoError(t, err)

	tasks, err := st.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
}
