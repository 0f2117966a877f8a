package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// SequencerObserver receives the outcome of every completed action.
// internal/metrics implements it with Prometheus counters.
type SequencerObserver interface {
	SequenceCommitted(slot string)
	SequenceDropped(slot string)
}

type sequencerConfig struct {
	clock    *Clock
	tokens   TokenGenerator
	observer SequencerObserver
	logger   *slog.Logger
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*sequencerConfig)

// WithSequencerClock shares an epoch clock between sequencers.
func WithSequencerClock(c *Clock) SequencerOption {
	return func(cfg *sequencerConfig) { cfg.clock = c }
}

// WithSequencerTokens sets the generator for request correlation tokens.
func WithSequencerTokens(g TokenGenerator) SequencerOption {
	return func(cfg *sequencerConfig) { cfg.tokens = g }
}

// WithSequencerObserver reports commits and drops to o.
func WithSequencerObserver(o SequencerObserver) SequencerOption {
	return func(cfg *sequencerConfig) { cfg.observer = o }
}

// WithSequencerLogger sets the logger for dropped completions.
func WithSequencerLogger(l *slog.Logger) SequencerOption {
	return func(cfg *sequencerConfig) { cfg.logger = l }
}

// Sequencer runs at most one live action per slot: the last one started.
//
// Run starts an action on its own goroutine and supersedes whatever was in
// flight. The superseded action's context is cancelled, and its eventual
// result, success or failure, is dropped without calling its commit. Commits
// are posted to the event loop, so they run serialized with every other
// state transition.
//
// INVARIANTS:
//   - commit runs only if its epoch is still current when the completion
//     reaches the loop
//   - after Cancel or Close, no pending commit runs
//   - after Close, Run is a no-op
type Sequencer[T any] struct {
	slot   string
	poster Poster
	cfg    sequencerConfig

	mu       sync.Mutex
	epoch    int64
	cancel   context.CancelFunc
	inflight bool
	closed   bool

	committed atomic.Int64
	dropped   atomic.Int64
}

// NewSequencer creates a Sequencer whose commits are posted to p.
// slot names the sequence in logs and metrics.
func NewSequencer[T any](slot string, p Poster, opts ...SequencerOption) *Sequencer[T] {
	cfg := sequencerConfig{
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Sequencer[T]{slot: slot, poster: p, cfg: cfg}
}

// Run starts action and returns its epoch, or 0 if the sequencer is closed.
//
// The action receives a context that is cancelled as soon as the action is
// superseded. commit receives the action's result on the event loop.
func (s *Sequencer[T]) Run(action func(ctx context.Context) (T, error), commit func(T, error)) int64 {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	epoch := s.cfg.clock.Next()
	s.epoch = epoch
	s.cancel = cancel
	s.inflight = true
	s.mu.Unlock()

	token := s.cfg.tokens.Generate()
	s.cfg.logger.Debug("sequence started", "slot", s.slot, "epoch", epoch, "token", token)

	go func() {
		v, err := action(ctx)
		posted := s.poster.Post(func() {
			s.finish(epoch, token, v, err, commit)
		})
		if !posted {
			// Loop is gone: nothing can observe the result.
			cancel()
			s.drop(epoch, token, "loop stopped")
		}
	}()

	return epoch
}

// finish runs on the event loop.
func (s *Sequencer[T]) finish(epoch int64, token string, v T, err error, commit func(T, error)) {
	s.mu.Lock()
	if s.closed || epoch != s.epoch {
		s.mu.Unlock()
		s.drop(epoch, token, "superseded")
		return
	}
	cancel := s.cancel
	s.cancel = nil
	s.inflight = false
	s.mu.Unlock()

	cancel()
	s.committed.Add(1)
	if s.cfg.observer != nil {
		s.cfg.observer.SequenceCommitted(s.slot)
	}
	commit(v, err)
}

func (s *Sequencer[T]) drop(epoch int64, token, reason string) {
	s.dropped.Add(1)
	if s.cfg.observer != nil {
		s.cfg.observer.SequenceDropped(s.slot)
	}
	s.cfg.logger.Debug("sequence dropped",
		"slot", s.slot,
		"epoch", epoch,
		"token", token,
		"reason", reason,
	)
}

// Cancel abandons the in-flight action, if any. Its completion is dropped.
func (s *Sequencer[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch = s.cfg.clock.Next()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.inflight = false
}

// Close cancels the in-flight action and disables the sequencer. Used on
// component teardown.
func (s *Sequencer[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.inflight = false
}

// Pending reports whether an action is in flight and not yet superseded.
func (s *Sequencer[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// Epoch returns the current epoch of the slot.
func (s *Sequencer[T]) Epoch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Committed returns how many completions were committed.
func (s *Sequencer[T]) Committed() int64 { return s.committed.Load() }

// Dropped returns how many completions were discarded as stale.
func (s *Sequencer[T]) Dropped() int64 { return s.dropped.Load() }
