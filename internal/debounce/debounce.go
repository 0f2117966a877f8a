// Package debounce gates an action behind a quiet period.
//
// A Debouncer executes its action at most once per quiet period, with the
// arguments of the last call made before the period elapsed. Every
// Debouncer owns its own timer; instances never share state.
//
// The action runs on the timer's goroutine. Callers that mutate client
// state post from the action into the event loop.
package debounce

import (
	"sync"
	"time"
)

// Timer is a pending timer that can be stopped.
type Timer interface {
	Stop() bool
}

// Scheduler creates timers. Tests substitute a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules on wall-clock time.
var RealScheduler Scheduler = realScheduler{}

type config struct {
	sched Scheduler
}

// Option configures a Debouncer.
type Option func(*config)

// WithScheduler sets the timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *config) {
		if s != nil {
			c.sched = s
		}
	}
}

// Debouncer delays an action until calls stop for the configured delay.
//
// Thread-safety: all methods are safe for concurrent use.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)
	sched Scheduler

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	arg     T
	pending bool
	stopped bool
}

// New wraps fn with a quiet period of delay.
func New[T any](delay time.Duration, fn func(T), opts ...Option) *Debouncer[T] {
	cfg := config{sched: RealScheduler}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Debouncer[T]{delay: delay, fn: fn, sched: cfg.sched}
}

// Call records arg and restarts the quiet period. Nothing is returned; a
// caller that needs the action's result must call the action directly.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.arg = arg
	d.pending = true
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs the action unless a later Call, Cancel or Flush got there
// first. A timer that could not be stopped in time lands here with a stale
// generation.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	arg := d.arg
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(arg)
}

// Flush runs a pending action immediately. Returns false if nothing was
// pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	arg := d.arg
	d.pending = false
	d.gen++
	d.mu.Unlock()

	d.fn(arg)
	return true
}

// Cancel drops a pending action.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.arg = zero
	d.pending = false
	d.gen++
}

// Stop drops a pending action and ignores all later calls.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Pending reports whether an action is waiting for its quiet period.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Func returns Call as a plain function value.
func (d *Debouncer[T]) Func() func(T) {
	return d.Call
}

// Pair carries the arguments of a two-argument action.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Wrap2 debounces a two-argument action. It returns the gated function and
// the underlying Debouncer for Cancel/Flush/Stop.
func Wrap2[A, B any](delay time.Duration, fn func(A, B), opts ...Option) (func(A, B), *Debouncer[Pair[A, B]]) {
	d := New(delay, func(p Pair[A, B]) { fn(p.First, p.Second) }, opts...)
	return func(a A, b B) { d.Call(Pair[A, B]{First: a, Second: b}) }, d
}
