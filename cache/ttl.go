// Package cache provides a time-bounded single-slot cache used to guard
// expensive asynchronous results, such as AI inference output, against
// being recomputed every frame.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State describes the validity of a cached value at query time.
type State int

const (
	// StateEmpty means no value has ever been stored.
	StateEmpty State = iota

	// StateValid means a value is present and younger than the TTL.
	StateValid

	// StateStale means a value is present but older than the TTL.
	StateStale
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateValid:
		return "Valid"
	case StateStale:
		return "Stale"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// TTL is a single-slot cache whose value is valid for a fixed window after
// it was stored. Expired values remain readable as stale fallbacks until
// overwritten or cleared.
//
// TTL is safe for concurrent use.
type TTL[V any] struct {
	mu    sync.Mutex
	val   V
	ok    bool
	stamp time.Time
	ttl   time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewTTL creates a cache with the given validity window.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{ttl: ttl}
}

// TTLWindow returns the configured validity window.
func (c *TTL[V]) TTLWindow() time.Duration { return c.ttl }

// Get returns the cached value and its state at the given time. The value
// is the zero value only when the state is StateEmpty.
func (c *TTL[V]) Get(now time.Time) (V, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok {
		c.misses.Add(1)
		var zero V
		return zero, StateEmpty
	}
	if now.Sub(c.stamp) < c.ttl {
		c.hits.Add(1)
		return c.val, StateValid
	}
	c.misses.Add(1)
	return c.val, StateStale
}

// Put stores a value with the given timestamp, replacing any previous
// value regardless of its age. A late result may therefore refresh an
// entry that a newer query already bypassed; the next query simply sees
// the fresher timestamp.
func (c *TTL[V]) Put(v V, now time.Time) {
	c.mu.Lock()
	c.val = v
	c.ok = true
	c.stamp = now
	c.mu.Unlock()
}

// Clear discards the cached value.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	var zero V
	c.val = zero
	c.ok = false
	c.stamp = time.Time{}
	c.mu.Unlock()
}

// Age returns how old the cached value is, and whether one exists.
func (c *TTL[V]) Age(now time.Time) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ok {
		return 0, false
	}
	return now.Sub(c.stamp), true
}

// Stats holds cache counters.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Stats returns current counters. Misses include stale reads.
func (c *TTL[V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
