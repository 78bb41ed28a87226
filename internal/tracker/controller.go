package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avanti-suite/timekeep/internal/format"
	"github.com/avanti-suite/timekeep/internal/models"
	"github.com/avanti-suite/timekeep/internal/store"
)

// Controller decides, from task status and view activity, whether a
// session should currently be running for one task, and drives the
// manager accordingly. It is either idle or tracking; while tracking
// it recomputes elapsed seconds from the session start time on every
// tick, so a suspended process never drifts.
type Controller struct {
	store   *store.Store
	manager *Manager
	agg     *Aggregator
	log     *logrus.Entry
	now     func() time.Time

	taskID uint
	userID string

	mu         sync.Mutex
	viewActive bool
	status     models.TaskStatus
	tracking   bool
	sessionID  uint
	startedAt  time.Time
	stopTick   chan struct{}

	// onTick, when set, receives the recomputed elapsed seconds once
	// per second while tracking.
	onTick func(elapsed int)
}

// NewController builds a controller for one task view. The aggregator
// is optional; when present it is nudged after every close so totals
// refresh without waiting for the feed.
func NewController(st *store.Store, mgr *Manager, agg *Aggregator, taskID uint, userID string, log *logrus.Logger) *Controller {
	return &Controller{
		store:   st,
		manager: mgr,
		agg:     agg,
		log:     log.WithField("component", "timer-controller").WithField("task_id", taskID),
		now:     time.Now,
		taskID:  taskID,
		userID:  userID,
		status:  models.StatusNew,
	}
}

// OnTick registers the per-second elapsed callback. Set it before
// activating the view.
func (c *Controller) OnTick(fn func(elapsed int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = fn
}

// SetViewActive records whether the task view is mounted and focused,
// and starts or stops tracking as needed.
func (c *Controller) SetViewActive(ctx context.Context, active bool) {
	c.mu.Lock()
	c.viewActive = active
	c.mu.Unlock()
	c.refresh(ctx)
}

// SetStatus records a task status change and starts or stops tracking
// as needed. Flipping to a terminal status while tracking closes the
// open session immediately, even if the view stays active.
func (c *Controller) SetStatus(ctx context.Context, status models.TaskStatus) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
	c.refresh(ctx)
}

// Tracking reports whether a session is currently open for this view.
func (c *Controller) Tracking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracking
}

// Elapsed returns whole seconds since the current session started, or
// 0 when idle.
func (c *Controller) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracking {
		return 0
	}
	return format.ElapsedSeconds(c.startedAt, c.now())
}

func (c *Controller) shouldTrackLocked() bool {
	return c.viewActive && c.status.Trackable()
}

func (c *Controller) refresh(ctx context.Context) {
	c.mu.Lock()
	should := c.shouldTrackLocked()
	tracking := c.tracking
	c.mu.Unlock()

	switch {
	case should && !tracking:
		c.engage(ctx)
	case !should && tracking:
		c.disengage(ctx)
	}
}

// engage starts tracking: an open session already in the ledger for
// this (task, user) is adopted (crash recovery, second process),
// otherwise a fresh one is started. The ledger check runs without the
// lock; if the inputs flipped meanwhile, an adopted session is closed
// right back instead of leaking.
func (c *Controller) engage(ctx context.Context) {
	existing, err := c.store.FindOpenSession(ctx, c.taskID, c.userID)
	if err != nil {
		c.log.WithError(err).Warn("failed to check for open session")
		existing = nil
	}

	c.mu.Lock()
	if c.tracking {
		c.mu.Unlock()
		return
	}
	if !c.shouldTrackLocked() {
		c.mu.Unlock()
		if existing != nil && c.manager.Adopt(ctx, existing) {
			c.manager.EndCurrent(ctx, false)
		}
		return
	}

	if existing != nil {
		if !c.manager.Adopt(ctx, existing) {
			c.mu.Unlock()
			return
		}
		c.beginLocked(existing.ID, existing.StartedAt)
		c.mu.Unlock()
		c.log.WithField("session_id", existing.ID).Debug("resumed open session")
		return
	}
	c.mu.Unlock()

	sessionID, err := c.manager.Start(ctx, c.taskID, c.userID)
	if err != nil {
		// Stay idle; the next status or view change retries.
		return
	}
	c.commitStart(ctx, sessionID)
}

// commitStart flips to tracking for a freshly started session. If a
// concurrent transition won the race (already tracking, so its tick
// loop must not be overwritten) or the inputs flipped back false
// meanwhile, the new session is closed instead.
func (c *Controller) commitStart(ctx context.Context, sessionID uint) bool {
	c.mu.Lock()
	if c.tracking || !c.shouldTrackLocked() {
		c.mu.Unlock()
		c.manager.EndCurrent(ctx, false)
		return false
	}
	c.beginLocked(sessionID, c.now())
	c.mu.Unlock()
	return true
}

// beginLocked flips to tracking and starts the tick loop. Callers hold
// the lock.
func (c *Controller) beginLocked(sessionID uint, startedAt time.Time) {
	c.tracking = true
	c.sessionID = sessionID
	c.startedAt = startedAt
	c.stopTick = make(chan struct{})
	go c.tick(c.stopTick, startedAt)
}

func (c *Controller) disengage(ctx context.Context) {
	c.mu.Lock()
	if !c.tracking {
		c.mu.Unlock()
		return
	}
	c.tracking = false
	c.sessionID = 0
	close(c.stopTick)
	c.stopTick = nil
	c.mu.Unlock()

	c.manager.EndCurrent(ctx, false)
	if c.agg != nil {
		c.agg.Refresh(ctx)
	}
}

// tick recomputes elapsed time once per second until stopped. Elapsed
// is always derived from the start time, never incremented.
func (c *Controller) tick(stop <-chan struct{}, startedAt time.Time) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			fn := c.onTick
			elapsed := format.ElapsedSeconds(startedAt, c.now())
			c.mu.Unlock()
			if fn != nil {
				fn(elapsed)
			}
		}
	}
}
