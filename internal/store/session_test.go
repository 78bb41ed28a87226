package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avanti-suite/timekeep/internal/config"
	"github.com/avanti-suite/timekeep/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	dir := t.TempDir()
	st, err := Open(config.Config{
		DBPath:   filepath.Join(dir, "test.db"),
		StateDir: dir,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestTask(t *testing.T, st *Store) *models.Task {
	t.Helper()
	task, err := st.CreateTask(context.Background(), "reply to customer", "")
	require.NoError(t, err)
	return task
}

func TestInsertSessionRequiresTask(t *testing.T) {
	st := newTestStore(t)

	_, err := st.InsertSession(context.Background(), 999, "agent-9", time.Now())
	assert.Error(t, err)
}

func TestCloseSessionOnce(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	session, err := st.InsertSession(ctx, task.ID, "agent-9", start)
	require.NoError(t, err)
	assert.True(t, session.Open())

	end := start.Add(125 * time.Second)
	require.NoError(t, st.CloseSession(ctx, session.ID, end, 125))

	got, err := st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, got.Open())
	assert.Equal(t, 125, got.DurationSeconds)

	// Closed rows are immutable; a second close is a caller bug.
	err = st.CloseSession(ctx, session.ID, end.Add(time.Minute), 200)
	assert.ErrorIs(t, err, ErrSessionClosed)

	got, err = st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 125, got.DurationSeconds)
}

func TestDeleteSession(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	session, err := st.InsertSession(ctx, task.ID, "agent-9", time.Now())
	require.NoError(t, err)

	require.NoError(t, st.DeleteSession(ctx, session.ID))
	_, err = st.GetSession(ctx, session.ID)
	assert.Error(t, err)

	// Deleting an already-deleted row is a no-op.
	assert.NoError(t, st.DeleteSession(ctx, session.ID))
}

func TestFindOpenSession(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	found, err := st.FindOpenSession(ctx, task.ID, "agent-9")
	require.NoError(t, err)
	assert.Nil(t, found)

	session, err := st.InsertSession(ctx, task.ID, "agent-9", time.Now())
	require.NoError(t, err)

	found, err = st.FindOpenSession(ctx, task.ID, "agent-9")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, session.ID, found.ID)

	// Other users' open sessions are invisible to this pair.
	found, err = st.FindOpenSession(ctx, task.ID, "agent-7")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSumTaskDurationOrderIndependent(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	other := newTestTask(t, st)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// Two users track the same task; a third session on another task
	// must not leak into the sum. Close order differs from insert
	// order on purpose.
	s1, err := st.InsertSession(ctx, task.ID, "agent-9", base)
	require.NoError(t, err)
	s2, err := st.InsertSession(ctx, task.ID, "agent-7", base.Add(time.Minute))
	require.NoError(t, err)
	s3, err := st.InsertSession(ctx, other.ID, "agent-9", base)
	require.NoError(t, err)

	require.NoError(t, st.CloseSession(ctx, s2.ID, base.Add(time.Minute+90*time.Second), 90))
	require.NoError(t, st.CloseSession(ctx, s3.ID, base.Add(999*time.Second), 999))
	require.NoError(t, st.CloseSession(ctx, s1.ID, base.Add(60*time.Second), 60))

	total, err := st.SumTaskDuration(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)
}

func TestOpenSessionsExcludedFromSum(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	base := time.Now()
	s1, err := st.InsertSession(ctx, task.ID, "agent-9", base)
	require.NoError(t, err)
	require.NoError(t, st.CloseSession(ctx, s1.ID, base.Add(42*time.Second), 42))

	_, err = st.InsertSession(ctx, task.ID, "agent-7", base)
	require.NoError(t, err)

	total, err := st.SumTaskDuration(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
}

func TestTaskTotalCacheRefreshed(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	base := time.Now()
	s1, err := st.InsertSession(ctx, task.ID, "agent-9", base)
	require.NoError(t, err)
	require.NoError(t, st.CloseSession(ctx, s1.ID, base.Add(125*time.Second), 125))

	got, err := st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(125), got.TotalDurationSeconds)

	// Deleting the row rolls the cached total back.
	require.NoError(t, st.DeleteSession(ctx, s1.ID))
	got, err = st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.TotalDurationSeconds)
}

func TestSessionsForTask(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	s2, err := st.InsertSession(ctx, task.ID, "agent-9", base.Add(time.Hour))
	require.NoError(t, err)
	s1, err := st.InsertSession(ctx, task.ID, "agent-9", base)
	require.NoError(t, err)
	require.NoError(t, st.CloseSession(ctx, s1.ID, base.Add(time.Minute), 60))
	require.NoError(t, st.CloseSession(ctx, s2.ID, base.Add(time.Hour+time.Minute), 60))

	sessions, err := st.SessionsForTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, s1.ID, sessions[0].ID, "oldest first")
}

func TestSessionsInRange(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	base := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	inRange, err := st.InsertSession(ctx, task.ID, "agent-9", base)
	require.NoError(t, err)
	require.NoError(t, st.CloseSession(ctx, inRange.ID, base.Add(time.Minute), 60))

	outside, err := st.InsertSession(ctx, task.ID, "agent-9", base.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, st.CloseSession(ctx, outside.ID, base.AddDate(0, 1, 0).Add(time.Minute), 60))

	sessions, err := st.SessionsInRange(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, inRange.ID, sessions[0].ID)
}

func TestSessionsInRangeWindowIsHalfOpen(t *testing.T) {
	st := newTestStore(t)
	task := newTestTask(t, st)
	ctx := context.Background()

	from := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	atStart, err := st.InsertSession(ctx, task.ID, "agent-9", from)
	require.NoError(t, err)
	require.NoError(t, st.CloseSession(ctx, atStart.ID, from.Add(time.Minute), 60))

	// Starts at exactly the window end: belongs to the next day, not
	// this one.
	atEnd, err := st.InsertSession(ctx, task.ID, "agent-9", to)
	require.NoError(t, err)
	require.NoError(t, st.CloseSession(ctx, atEnd.ID, to.Add(time.Minute), 60))

	sessions, err := st.SessionsInRange(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, atStart.ID, sessions[0].ID)

	next, err := st.SessionsInRange(ctx, to, to.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, atEnd.ID, next[0].ID)
}
