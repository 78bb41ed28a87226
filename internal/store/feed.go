package store

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Op is the kind of ledger write a Change describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change says that something changed in the session ledger. It carries
// ids only, never durations or totals: consumers must re-query
// authoritative state, not apply deltas. Delivery is at-least-once
// from the consumer's point of view; a slow consumer may see changes
// coalesced.
type Change struct {
	Op        Op
	TaskID    uint
	SessionID uint
}

type subscriber struct {
	ch     chan Change
	taskID uint // 0 matches every task
}

// Feed fans ledger change notifications out to subscribers.
type Feed struct {
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
	log  *logrus.Entry
}

// NewFeed returns an empty feed.
func NewFeed(log *logrus.Logger) *Feed {
	return &Feed{
		subs: make(map[int]*subscriber),
		log:  log.WithField("component", "feed"),
	}
}

// Subscribe registers interest in changes for one task (or all tasks
// when taskID is 0). The returned cancel func must be called to
// release the subscription; after cancel the channel is closed.
func (f *Feed) Subscribe(taskID uint) (<-chan Change, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	sub := &subscriber{ch: make(chan Change, 16), taskID: taskID}
	f.subs[id] = sub

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if s, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers a change to every matching subscriber. A subscriber
// whose buffer is full has the event dropped; since changes only mean
// "re-query", the next delivered event repairs the miss.
func (f *Feed) Publish(c Change) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		if sub.taskID != 0 && sub.taskID != c.TaskID {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			f.log.WithFields(logrus.Fields{
				"op":      c.Op,
				"task_id": c.TaskID,
			}).Debug("subscriber behind, change coalesced")
		}
	}
}
