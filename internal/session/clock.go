package session

import "sync/atomic"

// Sequencer hands out batch sequence numbers. *Clock is the production
// implementation; tests substitute a resettable clock.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock for batch ordering.
//
// Every applied batch is stamped with a strictly increasing seq from this
// clock, so replay reproduces the original order.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used by Restore to resume after the last logged batch.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
