// Package presence tracks which users are currently reachable.
//
// A user becomes reachable on [Tracker.Touch] and stays reachable until the
// inactivity window elapses without another touch, or until [Tracker.Release].
// Every user owns at most one pending timer. Re-arming stops the previous timer
// and bumps a generation counter, so a timer that fired concurrently with a
// touch finds a newer generation and leaves the entry alone.
package presence

import (
	"sync"
	"time"
)

// DefaultTTL is the inactivity window applied when none is configured.
const DefaultTTL = time.Hour

type entry struct {
	timer     *time.Timer
	gen       uint64
	expiresAt time.Time
}

// Tracker is safe for concurrent use.
type Tracker struct {
	ttl      time.Duration
	onExpire func(userID string)

	mu      sync.RWMutex
	entries map[string]*entry
	gen     uint64
	closed  bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithOnExpire registers fn to run after a user's window elapses.
// It is not called for Release or Close.
func WithOnExpire(fn func(userID string)) Option {
	return func(t *Tracker) {
		t.onExpire = fn
	}
}

// New returns a Tracker with the given inactivity window.
// A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	t := &Tracker{
		ttl:     ttl,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TTL returns the inactivity window.
func (t *Tracker) TTL() time.Duration {
	return t.ttl
}

// Touch marks userID reachable and restarts its inactivity window.
func (t *Tracker) Touch(userID string) {
	if userID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.gen++
	gen := t.gen
	if e, ok := t.entries[userID]; ok {
		e.timer.Stop()
	}
	t.entries[userID] = &entry{
		timer:     time.AfterFunc(t.ttl, func() { t.expire(userID, gen) }),
		gen:       gen,
		expiresAt: time.Now().Add(t.ttl),
	}
}

func (t *Tracker) expire(userID string, gen uint64) {
	t.mu.Lock()
	e, ok := t.entries[userID]
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.entries, userID)
	onExpire := t.onExpire
	t.mu.Unlock()

	if onExpire != nil {
		onExpire(userID)
	}
}

// Release marks userID unreachable immediately.
func (t *Tracker) Release(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[userID]; ok {
		e.timer.Stop()
		delete(t.entries, userID)
	}
}

// IsReachable reports whether userID is inside its inactivity window.
func (t *Tracker) IsReachable(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.entries[userID]
	return ok
}

// Reachable returns the members of userIDs that are reachable, in input order.
// Duplicates in the input appear once. The result is one consistent snapshot.
func (t *Tracker) Reachable(userIDs []string) []string {
	out := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := t.entries[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// ExpiresAt returns when userID's window ends, if the user is reachable.
func (t *Tracker) ExpiresAt(userID string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[userID]
	if !ok {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

// Len returns the number of reachable users.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Close stops every timer and forgets all users. Later touches are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, id)
	}
	t.closed = true
}
