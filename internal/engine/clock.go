package engine

import "sync/atomic"

// Clock is the monotonic logical clock that orders everything in the
// engine: selection changes, materialization completions, and scheduler
// decisions are all stamped with strictly increasing seq numbers from
// one shared clock. No wall-clock timestamps anywhere; replay of the
// same event sequence produces identical ordering.
//
// Thread-safety: safe for concurrent use (atomic operations), though the
// scheduler's single-writer loop is normally the only caller of Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to resume a session from a persisted cache's last seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
