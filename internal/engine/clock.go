package engine

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp request epochs.
//
// An epoch identifies one started action in a Sequencer slot. Comparing
// epochs, not wall-clock times, decides which completion wins.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next epoch. Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last epoch handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
