// Package testutil provides deterministic stand-ins for time and the data
// service so state-machine tests can control ordering exactly.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/roach88/papertrail/internal/debounce"
)

// ManualClock is a debounce.Scheduler whose time only moves when Advance is
// called.
//
// Timers fire synchronously on the goroutine calling Advance, in deadline
// order (creation order breaks ties). This keeps debounce tests free of
// sleeps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*ManualTimer
}

// NewManualClock creates a clock at time zero with no timers.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// ManualTimer is a timer created by ManualClock.
type ManualTimer struct {
	clock   *ManualClock
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &ManualTimer{clock: c, at: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop prevents the timer from firing. Returns false if it already fired or
// was stopped.
func (t *ManualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d and fires every timer that became due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	now := c.now

	var due, rest []*ManualTimer
	for _, t := range c.timers {
		switch {
		case t.stopped || t.fired:
		case t.at <= now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.f()
	}
}

// Now returns the elapsed manual time.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// PendingTimers returns the number of timers that have not fired or been
// stopped.
func (c *ManualClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
