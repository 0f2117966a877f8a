package engine

import (
	"context"
	"log/slog"
)

// Task is a unit of work executed on the engine goroutine.
type Task func()

// Poster submits tasks to an event loop. Engine implements it; tests may
// substitute a synchronous poster.
type Poster interface {
	Post(t Task) bool
}

// Engine is the single-writer event loop.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Call(): safe from any goroutine except the loop itself (it would deadlock)
//   - Run(): must be called from exactly one goroutine
//
// INVARIANTS:
//   - Tasks execute in FIFO order of Post
//   - At most one task executes at a time
type Engine struct {
	queue  *taskQueue
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for loop diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an idle Engine. Call Run to start processing.
func New(opts ...Option) *Engine {
	e := &Engine{
		queue:  newTaskQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Post submits a task for execution on the loop.
// Returns false if the engine has been stopped.
func (e *Engine) Post(t Task) bool {
	if t == nil {
		return false
	}
	return e.queue.Enqueue(t)
}

// Call posts t and blocks until it has run or ctx is done.
//
// CRITICAL: never call Call from inside a task.
func (e *Engine) Call(ctx context.Context, t Task) error {
	done := make(chan struct{})
	if !e.Post(func() {
		defer close(done)
		t()
	}) {
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued tasks.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Run starts the event loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// ERROR HANDLING: a panicking task is logged and the loop continues. The
// failed transition is lost, but the rest of the client stays responsive.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Debug("engine starting")

	for {
		task, ok := e.queue.TryDequeue()
		if ok {
			e.runTask(task)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Debug("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue, so a closed and
			// drained queue ends the loop here.
			if e.queue.Closed() && e.queue.Len() == 0 {
				e.logger.Debug("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run drains what is already queued and returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}
