package tracker

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
	"github.com/avanti-suite/timekeep/internal/store"
)

type testEnv struct {
	store    *store.Store
	stateDir string
	log      *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	dir := t.TempDir()
	st, err := store.Open(config.Config{
		DBPath:   filepath.Join(dir, "test.db"),
		StateDir: dir,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &testEnv{store: st, stateDir: dir, log: log}
}

func (e *testEnv) newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(e.store, e.stateDir, e.log)
	require.NoError(t, err)
	return m
}

func (e *testEnv) newTask(t *testing.T) *models.Task {
	t.Helper()
	task, err := e.store.CreateTask(context.Background(), "answer ticket", "")
	require.NoError(t, err)
	return task
}

func (e *testEnv) openSessions(t *testing.T, taskID uint) []models.Session {
	t.Helper()
	var open []models.Session
	for _, user := range []string{"agent-9", "agent-7"} {
		s, err := e.store.FindOpenSession(context.Background(), taskID, user)
		require.NoError(t, err)
		if s != nil {
			open = append(open, *s)
		}
	}
	return open
}

func TestStartAndEndSession(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)
	task := env.newTask(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return start }

	id, err := mgr.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)
	require.NotZero(t, id)

	_, activeTask, ok := mgr.Active()
	assert.True(t, ok)
	assert.Equal(t, task.ID, activeTask)

	mgr.now = func() time.Time { return start.Add(125 * time.Second) }
	elapsed, ok := mgr.Elapsed()
	assert.True(t, ok)
	assert.Equal(t, 125, elapsed)

	assert.True(t, mgr.EndCurrent(ctx, false))

	session, err := env.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, session.Open())
	assert.Equal(t, 125, session.DurationSeconds)

	total, err := env.store.SumTaskDuration(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(125), total)
}

func TestEndCurrentWithoutSessionIsNoop(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)

	assert.False(t, mgr.EndCurrent(context.Background(), false))
	assert.False(t, mgr.EndCurrent(context.Background(), true))
}

func TestSubSecondSessionDiscarded(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)
	task := env.newTask(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return start }

	id, err := mgr.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)

	mgr.now = func() time.Time { return start.Add(400 * time.Millisecond) }
	assert.True(t, mgr.EndCurrent(ctx, false))

	// The row is gone, not closed with zero duration.
	_, err = env.store.GetSession(ctx, id)
	assert.Error(t, err)

	total, err := env.store.SumTaskDuration(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestStartClosesPreviousSessionFirst(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)
	task := env.newTask(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return start }

	first, err := mgr.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)

	mgr.now = func() time.Time { return start.Add(30 * time.Second) }
	second, err := mgr.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The first session was closed before the second opened; this
	// process never holds two open sessions.
	firstRow, err := env.store.GetSession(ctx, first)
	require.NoError(t, err)
	assert.False(t, firstRow.Open())
	assert.Equal(t, 30, firstRow.DurationSeconds)

	secondRow, err := env.store.GetSession(ctx, second)
	require.NoError(t, err)
	assert.True(t, secondRow.Open())

	require.Len(t, env.openSessions(t, task.ID), 1)
}

func TestOrphanRecovery(t *testing.T) {
	env := newTestEnv(t)
	task := env.newTask(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// First process starts tracking and dies without flushing.
	first := env.newManager(t)
	first.now = func() time.Time { return start }
	id, err := first.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)

	// Next process start recovers the breadcrumbed session.
	second, err := NewManager(env.store, env.stateDir, env.log)
	require.NoError(t, err)

	session, err := env.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, session.Open(), "orphan should have been closed")
	assert.GreaterOrEqual(t, session.DurationSeconds, 0)

	total, err := env.store.SumTaskDuration(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(session.DurationSeconds), total)

	// Recovery is idempotent: no breadcrumb left, nothing to do.
	second.CloseOrphans(ctx)
	after, err := env.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.DurationSeconds, after.DurationSeconds)
}

func TestOrphanRecoveryWithNoBreadcrumb(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)

	// No breadcrumb at all: repeated calls are no-ops.
	mgr.CloseOrphans(context.Background())
	mgr.CloseOrphans(context.Background())
}

func TestOrphanRecoverySkipsAlreadyClosed(t *testing.T) {
	env := newTestEnv(t)
	task := env.newTask(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	first := env.newManager(t)
	first.now = func() time.Time { return start }
	id, err := first.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)

	// The session gets closed out-of-band (another process ran stop)
	// but the breadcrumb survives.
	require.NoError(t, env.store.CloseSession(ctx, id, start.Add(time.Minute), 60))

	_, err = NewManager(env.store, env.stateDir, env.log)
	require.NoError(t, err)

	session, err := env.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 60, session.DurationSeconds, "recovery must not double-close")
}

func TestDetachLeavesSessionOpen(t *testing.T) {
	env := newTestEnv(t)
	task := env.newTask(t)
	ctx := context.Background()

	first := env.newManager(t)
	id, err := first.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)

	first.Detach()
	_, _, ok := first.Active()
	assert.False(t, ok)

	// A new process must not treat the detached session as an orphan.
	_, err = NewManager(env.store, env.stateDir, env.log)
	require.NoError(t, err)

	session, err := env.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, session.Open())
}

func TestAdoptedSessionFlushesLikeOwn(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)
	task := env.newTask(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	session, err := env.store.InsertSession(ctx, task.ID, "agent-9", start)
	require.NoError(t, err)

	assert.True(t, mgr.Adopt(ctx, session))
	mgr.now = func() time.Time { return start.Add(42 * time.Second) }
	assert.True(t, mgr.EndCurrent(ctx, false))

	got, err := env.store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.DurationSeconds)
}

func TestAdoptClosesPreviousSessionFirst(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)
	task := env.newTask(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return start }

	first, err := mgr.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)

	other, err := env.store.InsertSession(ctx, task.ID, "agent-7", start)
	require.NoError(t, err)

	// Adopting while a session is current must flush it, same as
	// Start: otherwise the row stays open with no breadcrumb left to
	// recover it.
	mgr.now = func() time.Time { return start.Add(30 * time.Second) }
	require.True(t, mgr.Adopt(ctx, other))

	firstRow, err := env.store.GetSession(ctx, first)
	require.NoError(t, err)
	assert.False(t, firstRow.Open())
	assert.Equal(t, 30, firstRow.DurationSeconds)

	// The adopted session is now the current one and flushes normally.
	mgr.now = func() time.Time { return start.Add(90 * time.Second) }
	assert.True(t, mgr.EndCurrent(ctx, false))
	otherRow, err := env.store.GetSession(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, otherRow.DurationSeconds)
}

func TestAdoptCurrentSessionIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)
	task := env.newTask(t)
	ctx := context.Background()

	id, err := mgr.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)

	session, err := env.store.GetSession(ctx, id)
	require.NoError(t, err)
	require.True(t, mgr.Adopt(ctx, session))

	// Re-adopting the session we already own must not close it.
	got, err := env.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Open())
}

func TestCloseOrphansIgnoresOwnLiveSession(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.newManager(t)
	task := env.newTask(t)
	ctx := context.Background()

	id, err := mgr.Start(ctx, task.ID, "agent-9")
	require.NoError(t, err)

	// The breadcrumb on disk carries this manager's own instance id,
	// so recovery must leave the live session alone.
	mgr.CloseOrphans(ctx)

	session, err := env.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, session.Open())

	// The crumb survives too: a later crash is still recoverable.
	assert.True(t, mgr.EndCurrent(ctx, false))
}
