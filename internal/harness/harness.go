// Package harness runs scripted client sessions against a seeded data set.
//
// A scenario opens the client at a location, applies user gestures one at
// a time and waits for the client to go quiet after each. Debounce timers
// run on a manual clock, so typed input only searches when a step advances
// time. Every gateway call is recorded against the step that caused it.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/papertrail/internal/app"
	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/format"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/overlay"
	"github.com/roach88/papertrail/internal/route"
	"github.com/roach88/papertrail/internal/store"
	"github.com/roach88/papertrail/internal/testutil"
)

// stepTimeout bounds how long one step may take to settle.
const stepTimeout = 5 * time.Second

// Harness is the test execution engine for one scenario.
type Harness struct {
	store  *store.Store
	rec    *recorder
	clock  *testutil.ManualClock
	engine *engine.Engine
	app    *app.App
	logger *slog.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sends client logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Seed the database with the scenario's fixtures
// 2. Start the client at scenario.Start and wait for it to load
// 3. Apply each flow step, waiting for the client to settle after each
// 4. Evaluate assertions against the trace and final state
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(":memory:", store.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	fixtures, err := loadFixtures(scenario.Fixtures)
	if err != nil {
		return nil, err
	}
	if _, err := st.Seed(ctx, fixtures); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	start := scenario.Start
	if start == "" {
		start = route.RootPath
	}

	h := &Harness{
		store:  st,
		rec:    newRecorder(st),
		clock:  testutil.NewManualClock(),
		engine: engine.New(engine.WithLogger(o.logger)),
		logger: o.logger,
	}
	h.app, err = app.New(h.engine, app.Options{
		Gateway:       h.rec,
		StartPath:     start,
		Logger:        o.logger,
		Scheduler:     h.clock,
		Tokens:        engine.NewSequenceGenerator("flow"),
		SequencerOpts: []engine.SequencerOption{engine.WithSequencerTokens(engine.NewSequenceGenerator("req"))},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.engine.Run(loopCtx)
	}()
	defer func() {
		_ = h.do(ctx, func(a *app.App) { a.Close() })
		cancel()
		<-done
	}()

	result := NewResult()
	h.app.Start()
	if err := h.settle(ctx); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", start, err)
	}
	result.AddStep("start "+start, h.location(ctx), h.rec.take())

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := h.do(ctx, func(a *app.App) {
		result.State = a.State()
		result.HistoryLen = a.History().Len()
	}); err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.Rendered = format.RenderString(result.State)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

func loadFixtures(path string) (store.Fixtures, error) {
	if path == "" {
		return store.DefaultFixtures()
	}
	f, err := os.Open(path)
	if err != nil {
		return store.Fixtures{}, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close()
	return store.LoadFixtures(f)
}

// executeFlow applies each step and records it. A gesture the client
// rejects fails the result unless the step expects it.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i := range flow {
		step := &flow[i]
		var gestureErr error
		if err := h.apply(ctx, step); err != nil {
			var rejected *rejectedError
			if !errors.As(err, &rejected) {
				return fmt.Errorf("flow[%d] %s: %w", i, step, err)
			}
			gestureErr = rejected.err
		}
		if err := h.settle(ctx); err != nil {
			return fmt.Errorf("flow[%d] %s: settle: %w", i, step, err)
		}
		loc := h.location(ctx)
		result.AddStep(step.String(), loc, h.rec.take())

		expectErr := step.Expect != nil && step.Expect.Error
		switch {
		case gestureErr != nil && !expectErr:
			result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step, gestureErr))
		case gestureErr == nil && expectErr:
			result.AddError(fmt.Sprintf("flow[%d] %s: expected the gesture to be rejected", i, step))
		}
		if step.Expect != nil && step.Expect.Location != "" && step.Expect.Location != loc {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected location %s, got %s", i, step, step.Expect.Location, loc))
		}
	}
	return nil
}

// rejectedError is a gesture the client refused, as opposed to a harness
// failure.
type rejectedError struct {
	err error
}

func (e *rejectedError) Error() string { return e.err.Error() }

func (e *rejectedError) Unwrap() error { return e.err }

// apply performs one gesture.
func (h *Harness) apply(ctx context.Context, step *FlowStep) error {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return nil
	}

	var gestureErr error
	if err := h.do(ctx, func(a *app.App) { gestureErr = gesture(a, step) }); err != nil {
		return err
	}
	if gestureErr != nil {
		return &rejectedError{err: gestureErr}
	}
	return nil
}

// gesture runs on the loop.
func gesture(a *app.App, step *FlowStep) error {
	switch {
	case step.Input != nil:
		return onPage(a, func(p searchPage) error {
			p.Input(*step.Input)
			return nil
		})
	case step.Submit != nil:
		return onPage(a, func(p searchPage) error {
			p.SubmitSearch(*step.Submit)
			return nil
		})
	case step.Select != 0:
		return onPage(a, func(p searchPage) error {
			return p.SelectResult(step.Select)
		})
	case len(step.Compare) > 0:
		p, ok := a.Politicians()
		if !ok {
			return errNoPoliticianPage
		}
		for _, id := range step.Compare {
			if err := p.ToggleComparison(id); err != nil {
				return err
			}
		}
		return nil
	case step.Exit == "detail":
		return onPage(a, func(p searchPage) error {
			p.ExitDetail()
			return nil
		})
	case step.Exit == "comparison":
		p, ok := a.Politicians()
		if !ok {
			return errNoPoliticianPage
		}
		p.ExitComparison()
		return nil
	case step.Key != "":
		if !a.Overlay().HandleKey(overlay.ParseKey(step.Key)) {
			return fmt.Errorf("key %q ignored", step.Key)
		}
		return nil
	case step.Palette != nil:
		a.Overlay().SetText(*step.Palette)
		return nil
	case step.Pick != "":
		ref, err := model.ParseRef(step.Pick)
		if err != nil {
			return err
		}
		return a.Overlay().SelectResult(ref)
	case step.Action != "":
		return a.Overlay().Run(overlay.Action(step.Action))
	case step.Navigate != "":
		return a.Navigate(step.Navigate)
	case step.Back:
		a.Back()
		return nil
	}

	p, ok := a.Politicians()
	if !ok {
		return errNoPoliticianPage
	}
	sel := p.Selection()
	switch {
	case step.Page != 0:
		sel.SetPage(step.Page)
	case step.Sort != "":
		sel.SetSort(model.ParseSortOrder(step.Sort))
	case step.Types != nil:
		sel.SetBillTypes(step.Types)
	case step.Subjects != nil:
		sel.SetSubjects(step.Subjects)
	case step.Topic != nil:
		sel.SetTopic(*step.Topic)
	}
	return nil
}

// searchPage is the gesture surface both pages share.
type searchPage interface {
	Input(text string)
	SubmitSearch(text string)
	SelectResult(id int64) error
	ExitDetail()
}

var errNoPoliticianPage = fmt.Errorf("no politician page is mounted")

func onPage(a *app.App, fn func(searchPage) error) error {
	if p, ok := a.Politicians(); ok {
		return fn(p)
	}
	if p, ok := a.Donors(); ok {
		return fn(p)
	}
	return fmt.Errorf("no page is mounted at %s", a.Location())
}

func (h *Harness) do(ctx context.Context, fn func(*app.App)) error {
	ctx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()
	return h.app.Do(ctx, fn)
}

func (h *Harness) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()
	return h.app.Settle(ctx)
}

func (h *Harness) location(ctx context.Context) string {
	var loc string
	if err := h.do(ctx, func(a *app.App) { loc = a.Location() }); err != nil {
		h.logger.Warn("location unavailable", "error", err)
	}
	return loc
}
