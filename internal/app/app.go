// Package app is the application shell: it owns the event loop's view of
// the address bar, mounts the page matching the current path and hosts the
// command overlay above it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/papertrail/internal/bus"
	"github.com/roach88/papertrail/internal/debounce"
	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/overlay"
	"github.com/roach88/papertrail/internal/page"
	"github.com/roach88/papertrail/internal/route"
	"github.com/roach88/papertrail/internal/selection"
)

// Options configures an App.
type Options struct {
	Gateway   gateway.Gateway
	StartPath string

	Logger        *slog.Logger
	Scheduler     debounce.Scheduler
	InputDelay    time.Duration
	OverlayDelay  time.Duration
	OverlayCap    int
	Theme         overlay.Theme
	MaxSteps      int
	Tokens        engine.TokenGenerator
	SequencerOpts []engine.SequencerOption
	SelectionOpts []selection.Option

	// OnChange runs on the loop after any visible state change.
	OnChange func()
}

// State is a renderable copy of the whole client.
type State struct {
	Location   string
	Page       route.Page
	Kind       model.Kind
	NotFound   bool
	Politician *page.PoliticianView
	Donor      *page.DonorView
	Overlay    overlay.View
}

// App wires the pages, the overlay and the address bar onto one event loop.
//
// Route changes are delivered as loop tasks, never synchronously from the
// navigation that caused them, so a write-back inside one transition is
// observed by the next.
type App struct {
	e       *engine.Engine
	opts    Options
	logger  *slog.Logger
	history *route.History
	adapter *route.Adapter
	bus     *bus.Bus
	overlay *overlay.Overlay

	current  page.Page
	notFound bool
	stop     func()
}

// New creates an App on e. Nothing is mounted until Start.
func New(e *engine.Engine, opts Options) (*App, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("app: gateway is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StartPath == "" {
		opts.StartPath = route.RootPath
	}
	start, err := route.ParseLocation(opts.StartPath)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		e:       e,
		opts:    opts,
		logger:  opts.Logger,
		history: route.NewHistory(start),
		bus:     bus.New(opts.Logger),
	}
	a.adapter = route.NewAdapter(a.history, route.NewMatcher(), opts.Logger)
	a.overlay = overlay.New(overlay.Deps{
		Gateway:       opts.Gateway,
		Poster:        e,
		Adapter:       a.adapter,
		Bus:           a.bus,
		Scheduler:     opts.Scheduler,
		Delay:         opts.OverlayDelay,
		Cap:           opts.OverlayCap,
		Theme:         opts.Theme,
		Logger:        opts.Logger,
		SequencerOpts: opts.SequencerOpts,
		OnChange:      opts.OnChange,
	})
	a.stop = a.history.Listen(func(route.Location) {
		e.Post(a.routeChanged)
	})
	return a, nil
}

// Start mounts the page for the start location.
func (a *App) Start() bool {
	return a.e.Post(a.routeChanged)
}

func (a *App) routeChanged() {
	snap := a.adapter.Snapshot()

	switch snap.Page {
	case route.PageRoot:
		target := route.SearchPath(model.KindPolitician)
		a.logger.Debug("redirect", "from", route.RootPath, "to", target)
		if err := a.adapter.Replace(target); err != nil {
			a.logger.Error("redirect failed", "error", err)
		}
		return
	case route.PageNone:
		a.logger.Info("no page for location", "location", a.history.Location().String())
		a.unmount()
		a.notFound = true
		a.changed()
		return
	}

	a.notFound = false
	if a.current != nil && a.current.Kind() == snap.Kind {
		a.current.RouteChanged()
		return
	}

	a.unmount()
	a.current = a.build(snap.Kind)
	a.current.Mount()
	a.changed()
}

func (a *App) build(kind model.Kind) page.Page {
	deps := page.Deps{
		Gateway:       a.opts.Gateway,
		Poster:        a.e,
		Adapter:       a.adapter,
		Bus:           a.bus,
		Scheduler:     a.opts.Scheduler,
		InputDelay:    a.opts.InputDelay,
		Logger:        a.logger,
		Tokens:        a.opts.Tokens,
		MaxSteps:      a.opts.MaxSteps,
		SequencerOpts: a.opts.SequencerOpts,
		SelectionOpts: a.opts.SelectionOpts,
		OnChange:      a.opts.OnChange,
	}
	if kind == model.KindDonor {
		return page.NewDonorPage(deps)
	}
	return page.NewPoliticianPage(deps)
}

func (a *App) unmount() {
	if a.current == nil {
		return
	}
	a.current.Unmount()
	a.current = nil
}

func (a *App) changed() {
	if a.opts.OnChange != nil {
		a.opts.OnChange()
	}
}

// Do runs fn on the loop and waits for it.
func (a *App) Do(ctx context.Context, fn func(*App)) error {
	return a.e.Call(ctx, func() { fn(a) })
}

// Post queues fn on the loop without waiting. Returns false once the loop
// has stopped.
func (a *App) Post(fn func(*App)) bool {
	return a.e.Post(func() { fn(a) })
}

// Busy reports whether any network call is in flight. Loop only.
func (a *App) Busy() bool {
	if a.overlay.Busy() {
		return true
	}
	return a.current != nil && a.current.Busy()
}

// Settle waits until the loop is drained and no call is in flight.
// Pending debounce timers are not waited for.
func (a *App) Settle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		var busy bool
		if err := a.e.Call(ctx, func() { busy = a.Busy() || a.e.Pending() > 0 }); err != nil {
			return err
		}
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Navigate pushes target, as a user following a link would.
func (a *App) Navigate(target string) error {
	return a.adapter.Push(target)
}

// Back moves one entry back in history.
func (a *App) Back() {
	a.adapter.NavigateBack()
}

// Location returns the current address bar contents.
func (a *App) Location() string {
	return a.history.Location().String()
}

// History exposes the address bar.
func (a *App) History() *route.History { return a.history }

// Overlay returns the command overlay.
func (a *App) Overlay() *overlay.Overlay { return a.overlay }

// Logger returns the logger the client components share.
func (a *App) Logger() *slog.Logger { return a.logger }

// Bus returns the event bus.
func (a *App) Bus() *bus.Bus { return a.bus }

// Politicians returns the mounted politician page. Loop only.
func (a *App) Politicians() (*page.PoliticianPage, bool) {
	p, ok := a.current.(*page.PoliticianPage)
	return p, ok
}

// Donors returns the mounted donor page. Loop only.
func (a *App) Donors() (*page.DonorPage, bool) {
	p, ok := a.current.(*page.DonorPage)
	return p, ok
}

// State copies the renderable state. Loop only.
func (a *App) State() State {
	snap := a.adapter.Snapshot()
	s := State{
		Location: a.Location(),
		Page:     snap.Page,
		Kind:     snap.Kind,
		NotFound: a.notFound,
		Overlay:  a.overlay.View(),
	}
	if p, ok := a.Politicians(); ok {
		v := p.View()
		s.Politician = &v
	}
	if p, ok := a.Donors(); ok {
		v := p.View()
		s.Donor = &v
	}
	return s
}

// Close unmounts the page and stops the overlay. Loop only.
func (a *App) Close() {
	a.stop()
	a.unmount()
	a.overlay.Close()
}

// Flush fires every pending debounce immediately. Loop only.
func (a *App) Flush() bool {
	flushed := a.overlay.Flush()
	if a.current != nil && a.current.FlushInput() {
		flushed = true
	}
	return flushed
}
