// Package testutil provides deterministic helpers for engine tests:
// a resettable logical clock and scriptable dataset providers.
package testutil

import "sync"

// Clock is a thread-safe monotonic logical clock for tests.
//
// Unlike the engine clock it can be reset, so the same scenario can run
// repeatedly with identical seq values for golden comparison.
type Clock struct {
	mu  sync.Mutex
	seq int64
}

// NewClock creates a deterministic clock starting at 0.
// The first call to Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments and returns the next sequence number.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset resets the clock to 0 for scenario reuse.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
