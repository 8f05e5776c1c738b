package store

import "sync"

// Subscription is a cancellable live view of one owner's record set.
// Snapshots coalesce: a consumer that falls behind sees only the latest
// state, never a backlog of intermediate ones. Cancel is synchronous —
// once it returns, no further snapshot is delivered.
type Subscription struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
	stop   func()
}

// NewSubscription creates a subscription whose Cancel additionally runs
// stop (detach from the backend's notifier, stop a listener, and so on).
// stop may be nil.
func NewSubscription(stop func()) *Subscription {
	return &Subscription{
		ch:   make(chan Snapshot, 1),
		stop: stop,
	}
}

// Events returns the snapshot channel. It is closed by Cancel.
func (s *Subscription) Events() <-chan Snapshot {
	return s.ch
}

// Publish delivers a snapshot, replacing any undelivered one. It is a
// no-op after Cancel.
func (s *Subscription) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch: // drop the stale, unconsumed snapshot
	default:
	}
	s.ch <- snap
}

// Cancel tears the subscription down. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}
}
