package tracker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/avanti-suite/timekeep/internal/store"
)

// Aggregator keeps the cross-user total for one task current. Every
// ledger change notification for the task triggers a fresh summation
// query; the notification itself is never trusted as a payload, so
// duplicate or out-of-order delivery is harmless.
type Aggregator struct {
	store  *store.Store
	taskID uint
	log    *logrus.Entry

	mu        sync.Mutex
	total     int64
	listeners []func(total int64)

	refreshCh chan struct{}
}

// NewAggregator builds an aggregator for one task. Call Run to start
// it.
func NewAggregator(st *store.Store, taskID uint, log *logrus.Logger) *Aggregator {
	return &Aggregator{
		store:     st,
		taskID:    taskID,
		log:       log.WithField("component", "aggregator").WithField("task_id", taskID),
		refreshCh: make(chan struct{}, 1),
	}
}

// Total returns the last computed cross-user total in seconds.
func (a *Aggregator) Total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// OnTotal registers a listener invoked with every recomputed total.
func (a *Aggregator) OnTotal(fn func(total int64)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Refresh requests an immediate recomputation, used right after a
// local close so the caller's own total does not wait on the feed.
func (a *Aggregator) Refresh(ctx context.Context) {
	select {
	case a.refreshCh <- struct{}{}:
	default:
	}
}

// Run loads the initial total, subscribes to the change feed and
// recomputes on every notification until ctx is done.
func (a *Aggregator) Run(ctx context.Context) {
	changes, cancel := a.store.Feed().Subscribe(a.taskID)
	defer cancel()

	a.recompute(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			a.recompute(ctx)
		case <-a.refreshCh:
			a.recompute(ctx)
		}
	}
}

func (a *Aggregator) recompute(ctx context.Context) {
	total, err := a.store.SumTaskDuration(ctx, a.taskID)
	if err != nil {
		// A later notification or refresh corrects the value.
		a.log.WithError(err).Warn("failed to recompute total")
		return
	}

	a.mu.Lock()
	changed := total != a.total
	a.total = total
	listeners := make([]func(int64), len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(total)
	}
}
