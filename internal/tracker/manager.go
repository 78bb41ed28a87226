// Package tracker implements the session accounting engine: the
// per-process session manager, the per-task timer controller, and the
// realtime total aggregator.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avanti-suite/timekeep/internal/format"
	"github.com/avanti-suite/timekeep/internal/models"
	"github.com/avanti-suite/timekeep/internal/store"
)

// syncFlushTimeout bounds the blocking flush that runs while the
// process is shutting down.
const syncFlushTimeout = 3 * time.Second

// Manager owns at most one open session for this process. Construct
// exactly one per process (NewManager recovers orphans left by a
// previous instance) and share it by injection.
//
// All persistence failures are logged and surfaced as return values;
// nothing panics and nothing propagates past this boundary.
type Manager struct {
	store  *store.Store
	crumbs *crumbFile
	log    *logrus.Entry
	now    func() time.Time

	// instance distinguishes this manager's breadcrumbs from crumbs
	// left by a dead predecessor: orphan recovery only touches foreign
	// crumbs.
	instance string

	mu      sync.Mutex
	current *active
}

// active is the in-memory record of the session this process opened.
type active struct {
	sessionID uint
	taskID    uint
	startedAt time.Time
}

// NewManager builds the process-wide session manager and immediately
// closes any session orphaned by a previous process using the same
// state directory.
func NewManager(st *store.Store, stateDir string, log *logrus.Logger) (*Manager, error) {
	crumbs, err := newCrumbFile(stateDir)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:    st,
		crumbs:   crumbs,
		log:      log.WithField("component", "session-manager"),
		now:      time.Now,
		instance: uuid.NewString(),
	}
	m.CloseOrphans(context.Background())
	return m, nil
}

// Start opens a new session for the task. If this process already has
// an open session it is fully closed first, so two open sessions from
// one process never coexist. Returns the new session id, or 0 and an
// error on persistence failure; callers treat that as "timer does not
// run", never as fatal.
func (m *Manager) Start(ctx context.Context, taskID uint, userID string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if !m.endLocked(ctx, false) {
			// Starting anyway would leave two open sessions from this
			// process, so the previous one must flush first.
			return 0, fmt.Errorf("failed to close previous session #%d", m.current.sessionID)
		}
	}

	session, err := m.store.InsertSession(ctx, taskID, userID, m.now())
	if err != nil {
		m.log.WithError(err).WithField("task_id", taskID).Warn("failed to start session")
		return 0, err
	}

	m.adoptLocked(session)
	return session.ID, nil
}

// Adopt takes ownership of an existing open session, typically one the
// controller found in the ledger after a crash or from another
// process. An adopted session is flushed and recovered exactly like
// one this manager started. A session already current here is fully
// closed first, same as in Start; when that flush fails the adopt is
// refused and false is returned, so the previous session is never
// silently dropped from recovery.
func (m *Manager) Adopt(ctx context.Context, session *models.Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.sessionID != session.ID {
		if !m.endLocked(ctx, false) {
			m.log.WithFields(logrus.Fields{
				"session_id": session.ID,
				"task_id":    session.TaskID,
			}).Warn("refusing adopt, previous session would leak")
			return false
		}
	}

	m.adoptLocked(session)
	return true
}

func (m *Manager) adoptLocked(session *models.Session) {
	m.current = &active{
		sessionID: session.ID,
		taskID:    session.TaskID,
		startedAt: session.StartedAt,
	}
	crumb := breadcrumb{
		Instance:  m.instance,
		SessionID: session.ID,
		TaskID:    session.TaskID,
		StartedAt: session.StartedAt,
	}
	if err := m.crumbs.Store(crumb); err != nil {
		// Worst case the session leaks until the next ledger scan;
		// tracking itself proceeds.
		m.log.WithError(err).Warn("failed to write breadcrumb")
	}
}

// Active returns the session id and task id of the currently open
// session, if any.
func (m *Manager) Active() (sessionID, taskID uint, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0, 0, false
	}
	return m.current.sessionID, m.current.taskID, true
}

// Elapsed returns the whole seconds the current session has been open,
// recomputed from its start time.
func (m *Manager) Elapsed() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0, false
	}
	return format.ElapsedSeconds(m.current.startedAt, m.now()), true
}

// EndCurrent closes the open session, if any. Returns false when there
// was nothing to close or the flush failed.
//
// syncFlush selects the shutdown path: the close runs on a detached
// context with a hard deadline, so a caller context that is already
// cancelled (signal handling, program teardown) cannot drop the final
// interval. Everywhere else pass false and let ctx govern.
func (m *Manager) EndCurrent(ctx context.Context, syncFlush bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endLocked(ctx, syncFlush)
}

func (m *Manager) endLocked(ctx context.Context, syncFlush bool) bool {
	if m.current == nil {
		return false
	}

	if syncFlush {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), syncFlushTimeout)
		defer cancel()
	}

	cur := m.current
	if err := m.finishSession(ctx, cur.sessionID, cur.startedAt); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"session_id": cur.sessionID,
			"task_id":    cur.taskID,
		}).Warn("failed to flush session")
		if syncFlush {
			// The process is going away; the breadcrumb stays so the
			// next instance recovers this session as an orphan.
			m.current = nil
		}
		return false
	}

	m.current = nil
	if err := m.crumbs.Clear(); err != nil {
		m.log.WithError(err).Warn("failed to clear breadcrumb")
	}
	return true
}

// finishSession closes one session as of now, deleting it instead when
// the interval rounds down to zero seconds.
func (m *Manager) finishSession(ctx context.Context, sessionID uint, startedAt time.Time) error {
	end := m.now()
	duration := format.ElapsedSeconds(startedAt, end)
	if duration < 1 {
		return m.store.DeleteSession(ctx, sessionID)
	}
	return m.store.CloseSession(ctx, sessionID, end, duration)
}

// Detach releases the current session without closing it: the ledger
// row stays open and resumable, and the breadcrumb is cleared so the
// next process start does not mistake a deliberately running session
// for an orphan. Used when the user backgrounds a timer on purpose.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.current = nil
	if err := m.crumbs.Clear(); err != nil {
		m.log.WithError(err).Warn("failed to clear breadcrumb")
	}
}

// CloseOrphans repairs sessions left open by a previous process: if a
// breadcrumb written by a foreign manager instance exists, the session
// it names is closed with a duration running up to now. A crumb
// stamped with this manager's own instance id belongs to a live
// session and is left alone. The foreign breadcrumb is cleared even
// when recovery fails, so a poisoned record is never retried forever.
// Calling with no breadcrumb present is a no-op.
func (m *Manager) CloseOrphans(ctx context.Context) {
	crumb, err := m.crumbs.Load()
	if err != nil {
		m.log.WithError(err).Warn("failed to read breadcrumb")
		if err := m.crumbs.Clear(); err != nil {
			m.log.WithError(err).Warn("failed to clear breadcrumb")
		}
		return
	}
	if crumb == nil {
		return
	}
	if crumb.Instance == m.instance {
		// Our own live breadcrumb, not a leftover: the session it
		// names is still being tracked by this manager.
		return
	}

	log := m.log.WithFields(logrus.Fields{
		"session_id": crumb.SessionID,
		"task_id":    crumb.TaskID,
		"instance":   crumb.Instance,
	})

	session, err := m.store.GetSession(ctx, crumb.SessionID)
	switch {
	case err != nil:
		log.WithError(err).Warn("orphaned session not found")
	case !session.Open():
		// Already flushed by the previous instance; nothing to repair.
	default:
		if err := m.finishSession(ctx, session.ID, session.StartedAt); err != nil {
			log.WithError(err).Warn("failed to close orphaned session")
		} else {
			log.Info("closed orphaned session")
		}
	}

	if err := m.crumbs.Clear(); err != nil {
		m.log.WithError(err).Warn("failed to clear breadcrumb")
	}
}
