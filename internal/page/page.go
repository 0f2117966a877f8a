// Package page reconciles page state with the address bar.
//
// Each page owns a selection machine and runs two opposing effects on the
// event loop. Hydration reads the route snapshot and drives the machine
// toward it, fetching entities by id on a cold start. The URL-sync effect
// watches the machine and writes the selection or comparison back into the
// URL when the URL does not show it yet. URL sync never runs while
// hydration is still reconciling or fetching, and every write-back is
// checked against a per-flow cycle detector and step quota.
package page

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/papertrail/internal/bus"
	"github.com/roach88/papertrail/internal/debounce"
	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/route"
	"github.com/roach88/papertrail/internal/selection"
)

// DefaultInputDelay is the quiet period before typed input searches.
const DefaultInputDelay = 300 * time.Millisecond

// Page is a mountable page. All methods run on the event loop.
type Page interface {
	Kind() model.Kind
	Mount()
	Unmount()

	// RouteChanged re-runs hydration against the current location.
	RouteChanged()

	// Busy reports whether any network call of the page is in flight.
	Busy() bool

	// FlushInput runs a pending debounced search now.
	FlushInput() bool
}

// Deps are the collaborators shared by every page.
type Deps struct {
	Gateway gateway.Gateway
	Poster  engine.Poster
	Adapter *route.Adapter
	Bus     *bus.Bus

	// Scheduler times the input debounce. Nil uses wall-clock time.
	Scheduler  debounce.Scheduler
	InputDelay time.Duration

	Logger        *slog.Logger
	Tokens        engine.TokenGenerator
	MaxSteps      int
	SequencerOpts []engine.SequencerOption
	SelectionOpts []selection.Option
	OnChange      func()
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Tokens == nil {
		d.Tokens = engine.UUIDv7Generator{}
	}
	if d.Scheduler == nil {
		d.Scheduler = debounce.RealScheduler
	}
	if d.InputDelay <= 0 {
		d.InputDelay = DefaultInputDelay
	}
	return d
}

// HydrationError records a cold-start fetch that could not complete. The
// page keeps its pre-hydration state.
type HydrationError struct {
	Kind   model.ErrorKind `json:"kind"`
	Target string          `json:"target"`
	Err    error           `json:"-"`
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrate %s: %s: %v", e.Target, e.Kind, e.Err)
}

func (e *HydrationError) Unwrap() error {
	return e.Err
}

// core carries the flow bookkeeping and input handling shared by the pages.
type core struct {
	kind    model.Kind
	deps    Deps
	logger  *slog.Logger
	adapter *route.Adapter

	cycles *engine.CycleDetector
	quota  *engine.QuotaEnforcer
	flow   string

	// expected is the location the last write-back navigated to. Seeing it
	// come back as a route change continues the current flow.
	expected string

	reconciling   bool
	pendingTarget string
	hydrationErr  *HydrationError

	input     *debounce.Debouncer[string]
	inputText string

	unsubscribe func()
	mounted     bool
}

func newCore(kind model.Kind, deps Deps) core {
	deps = deps.withDefaults()
	return core{
		kind:    kind,
		deps:    deps,
		logger:  deps.Logger.With("page", string(kind)),
		adapter: deps.Adapter,
		cycles:  engine.NewCycleDetector(),
		quota:   engine.NewQuotaEnforcer(deps.MaxSteps),
	}
}

func (c *core) Kind() model.Kind { return c.kind }

// beginFlow starts a new write-back flow. Called for every externally
// originated route change and every user gesture.
func (c *core) beginFlow() {
	if c.flow != "" {
		c.cycles.Clear(c.flow)
	}
	c.flow = c.deps.Tokens.Generate()
	c.quota.Reset()
	c.expected = ""
}

// observeRoute decides whether the current location continues the flow.
func (c *core) observeRoute() {
	loc := c.adapter.History().Location().String()
	if c.expected != "" && loc == c.expected {
		c.expected = ""
		return
	}
	c.beginFlow()
}

// settled reports whether hydration has reached its fixed point.
func (c *core) settled() bool {
	return !c.reconciling && c.pendingTarget == ""
}

// writeBack navigates to target unless that would loop.
func (c *core) writeBack(target string, navigate func()) {
	if c.cycles.WouldCycle(c.flow, target) {
		c.logger.Warn("url write-back skipped: cycle detected", "flow", c.flow, "target", target)
		return
	}
	if err := c.quota.Check(c.flow); err != nil {
		c.logger.Error("url write-back skipped", "error", err)
		return
	}
	c.cycles.Record(c.flow, target)
	c.expected = target
	c.logger.Debug("url write-back", "flow", c.flow, "target", target, "step", c.quota.Current())
	navigate()
}

func (c *core) failHydration(target string, err error) {
	kind := gateway.Classify(err)
	c.hydrationErr = &HydrationError{Kind: kind, Target: target, Err: err}
	c.logger.Warn("hydration failed", "target", target, "kind", kind, "error", err)
}

func (c *core) notify() {
	if c.deps.OnChange != nil {
		c.deps.OnChange()
	}
}

// startInput creates the input debouncer. submit runs on the loop.
func (c *core) startInput(submit func(string)) {
	c.input = debounce.New(c.deps.InputDelay, func(text string) {
		c.deps.Poster.Post(func() {
			if c.mounted {
				submit(text)
			}
		})
	}, debounce.WithScheduler(c.deps.Scheduler))
}

// FlushInput runs a pending debounced input immediately. The submit itself
// is posted, so it lands after the current task.
func (c *core) FlushInput() bool {
	if c.input == nil {
		return false
	}
	return c.input.Flush()
}

// navigateSearch writes a submitted query into the URL. Queries below the
// minimum only reset the URL when empty.
func (c *core) navigateSearch(text string) {
	switch {
	case model.QueryLength(text) >= c.kind.MinQueryLength():
		c.adapter.NavigateToSearch(c.kind, text)
	case text == "":
		c.adapter.NavigateToSearch(c.kind, "")
	}
}

func (c *core) unmountCore() {
	c.mounted = false
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.input != nil {
		c.input.Stop()
	}
	if c.flow != "" {
		c.cycles.Clear(c.flow)
	}
	c.pendingTarget = ""
}
