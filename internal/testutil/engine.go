package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/papertrail/internal/engine"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StartEngine runs an event loop for the duration of the test.
func StartEngine(t testing.TB) *engine.Engine {
	t.Helper()

	e := engine.New(engine.WithLogger(DiscardLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

// OnLoop runs fn on the loop and waits for it.
func OnLoop(t testing.TB, e *engine.Engine, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Call(ctx, fn))
}

// Eventually waits until cond, evaluated on the loop, holds.
func Eventually(t testing.TB, e *engine.Engine, cond func() bool, msgAndArgs ...any) {
	t.Helper()
	require.Eventually(t, func() bool {
		var ok bool
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if err := e.Call(ctx, func() { ok = cond() }); err != nil {
			return false
		}
		return ok
	}, 2*time.Second, time.Millisecond, msgAndArgs...)
}

// SequenceRecorder is an engine.SequencerObserver counting outcomes per
// slot.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceRecorder struct {
	mu        sync.Mutex
	committed map[string]int
	dropped   map[string]int
}

var _ engine.SequencerObserver = (*SequenceRecorder)(nil)

// NewSequenceRecorder creates an empty recorder.
func NewSequenceRecorder() *SequenceRecorder {
	return &SequenceRecorder{
		committed: make(map[string]int),
		dropped:   make(map[string]int),
	}
}

func (r *SequenceRecorder) SequenceCommitted(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed[slot]++
}

func (r *SequenceRecorder) SequenceDropped(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped[slot]++
}

// Committed returns the number of commits on slot.
func (r *SequenceRecorder) Committed(slot string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed[slot]
}

// Dropped returns the number of dropped completions on slot.
func (r *SequenceRecorder) Dropped(slot string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped[slot]
}

// WaitCommitted waits until slot has at least n commits.
func (r *SequenceRecorder) WaitCommitted(t testing.TB, slot string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Committed(slot) >= n },
		2*time.Second, time.Millisecond, "slot %s: expected %d committed", slot, n)
}

// WaitDropped waits until slot has at least n dropped completions.
func (r *SequenceRecorder) WaitDropped(t testing.TB, slot string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Dropped(slot) >= n },
		2*time.Second, time.Millisecond, "slot %s: expected %d dropped", slot, n)
}
