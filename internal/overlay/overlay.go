// Package overlay implements the global command overlay: a quick search
// across both entity kinds plus a few navigation actions, toggled by a
// keyboard chord from anywhere in the application.
//
// The overlay outlives every page. Its own state is independent of which
// page is mounted; a selection reaches the page only through the URL and
// the event bus.
package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/papertrail/internal/bus"
	"github.com/roach88/papertrail/internal/debounce"
	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/route"
)

const (
	// DefaultDelay is the quiet period before overlay text searches.
	DefaultDelay = 200 * time.Millisecond

	// DefaultCap is the number of results shown per kind.
	DefaultCap = 5
)

// Theme is the colour scheme toggled from the overlay.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Results are the capped sub-search results.
type Results struct {
	Politicians []model.Politician
	Donors      []model.Donor
}

// View is what the overlay renders.
type View struct {
	Open    bool
	Text    string
	Results Results
	Loading bool
	Theme   Theme
}

// Deps are the overlay's collaborators.
type Deps struct {
	Gateway gateway.Gateway
	Poster  engine.Poster
	Adapter *route.Adapter
	Bus     *bus.Bus

	Scheduler     debounce.Scheduler
	Delay         time.Duration
	Cap           int
	Theme         Theme
	Logger        *slog.Logger
	SequencerOpts []engine.SequencerOption
	OnChange      func()
}

// Overlay is the command overlay. All methods run on the event loop.
type Overlay struct {
	deps   Deps
	logger *slog.Logger

	open    bool
	text    string
	results Results
	theme   Theme

	input *debounce.Debouncer[string]
	seq   *engine.Sequencer[Results]
}

// New creates a closed overlay.
func New(deps Deps) *Overlay {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = debounce.RealScheduler
	}
	if deps.Delay <= 0 {
		deps.Delay = DefaultDelay
	}
	if deps.Cap <= 0 {
		deps.Cap = DefaultCap
	}
	if deps.Theme == "" {
		deps.Theme = ThemeLight
	}

	o := &Overlay{
		deps:   deps,
		logger: deps.Logger.With("component", "overlay"),
		theme:  deps.Theme,
	}
	seqOpts := append([]engine.SequencerOption{engine.WithSequencerLogger(o.logger)}, deps.SequencerOpts...)
	o.seq = engine.NewSequencer[Results]("overlay.search", deps.Poster, seqOpts...)
	o.input = debounce.New(deps.Delay, func(text string) {
		deps.Poster.Post(func() { o.search(text) })
	}, debounce.WithScheduler(deps.Scheduler))
	return o
}

// HandleKey toggles the overlay on the chord and reports whether the key
// was consumed. Every other key is left alone.
func (o *Overlay) HandleKey(k Key) bool {
	if !k.IsToggleChord() {
		return false
	}
	o.Toggle()
	return true
}

// Toggle opens or closes the overlay.
func (o *Overlay) Toggle() {
	o.open = !o.open
	o.changed()
}

// Show opens the overlay.
func (o *Overlay) Show() {
	if o.open {
		return
	}
	o.open = true
	o.changed()
}

// Hide closes the overlay. Text and results are kept for the next open.
func (o *Overlay) Hide() {
	if !o.open {
		return
	}
	o.open = false
	o.changed()
}

// IsOpen reports visibility.
func (o *Overlay) IsOpen() bool { return o.open }

// Theme returns the current theme.
func (o *Overlay) Theme() Theme { return o.theme }

// SetText records the overlay text and searches once typing pauses.
func (o *Overlay) SetText(text string) {
	o.text = text
	o.input.Call(text)
	o.changed()
}

// Flush runs a pending debounced search immediately.
func (o *Overlay) Flush() bool {
	return o.input.Flush()
}

// search runs both sub-searches concurrently. Politicians need two code
// points, donors three; a failing kind degrades to no results.
func (o *Overlay) search(text string) {
	n := model.QueryLength(text)
	if n < model.KindPolitician.MinQueryLength() {
		o.seq.Cancel()
		o.results = Results{}
		o.changed()
		return
	}

	gw := o.deps.Gateway
	limit := o.deps.Cap
	withDonors := n >= model.KindDonor.MinQueryLength()
	logger := o.logger

	o.seq.Run(
		func(ctx context.Context) (Results, error) {
			var res Results
			var g errgroup.Group
			g.Go(func() error {
				ps, err := gw.SearchPoliticians(ctx, text)
				if err != nil {
					logger.Debug("overlay politician search failed", "query", text, "error", err)
					return nil
				}
				res.Politicians = capped(ps, limit)
				return nil
			})
			if withDonors {
				g.Go(func() error {
					ds, err := gw.SearchDonors(ctx, text)
					if err != nil {
						logger.Debug("overlay donor search failed", "query", text, "error", err)
						return nil
					}
					res.Donors = capped(ds, limit)
					return nil
				})
			}
			_ = g.Wait()
			return res, ctx.Err()
		},
		func(res Results, err error) {
			if err != nil {
				return
			}
			o.results = res
			o.changed()
		},
	)
	o.changed()
}

func capped[E any](es []E, n int) []E {
	if len(es) > n {
		es = es[:n]
	}
	return append([]E(nil), es...)
}

// SelectPolitician closes the overlay, navigates to the politician and
// publishes it to the mounted page.
func (o *Overlay) SelectPolitician(p model.Politician) {
	o.dismiss()
	o.deps.Adapter.NavigateToEntity(p.ID, model.KindPolitician)
	o.deps.Bus.Publish(bus.PoliticianSelected(p))
}

// SelectDonor closes the overlay, navigates to the donor and publishes it
// to the mounted page.
func (o *Overlay) SelectDonor(d model.Donor) {
	o.dismiss()
	o.deps.Adapter.NavigateToEntity(d.ID, model.KindDonor)
	o.deps.Bus.Publish(bus.DonorSelected(d))
}

// SelectResult selects a displayed result by kind and id.
func (o *Overlay) SelectResult(ref model.EntityRef) error {
	switch ref.Kind {
	case model.KindPolitician:
		for _, p := range o.results.Politicians {
			if p.ID == ref.ID {
				o.SelectPolitician(p)
				return nil
			}
		}
	case model.KindDonor:
		for _, d := range o.results.Donors {
			if d.ID == ref.ID {
				o.SelectDonor(d)
				return nil
			}
		}
	}
	return fmt.Errorf("overlay has no %s result %d", ref.Kind, ref.ID)
}

// dismiss closes the overlay and clears its text and any pending search.
func (o *Overlay) dismiss() {
	o.open = false
	o.text = ""
	o.input.Cancel()
	o.seq.Cancel()
	o.results = Results{}
	o.changed()
}

// Run executes a non-search action and closes the overlay.
func (o *Overlay) Run(a Action) error {
	switch a {
	case ActionToggleTheme:
		if o.theme == ThemeDark {
			o.theme = ThemeLight
		} else {
			o.theme = ThemeDark
		}
	case ActionPoliticianSearch:
		o.deps.Adapter.NavigateToSearch(model.KindPolitician, "")
	case ActionDonorSearch:
		o.deps.Adapter.NavigateToSearch(model.KindDonor, "")
	default:
		return fmt.Errorf("unknown overlay action %q", a)
	}
	o.logger.Debug("overlay action", "action", a)
	o.open = false
	o.changed()
	return nil
}

// Busy reports whether a sub-search is in flight.
func (o *Overlay) Busy() bool {
	return o.seq.Pending()
}

// Close stops the debouncer and abandons any search in flight.
func (o *Overlay) Close() {
	o.input.Stop()
	o.seq.Close()
}

// View copies the renderable state.
func (o *Overlay) View() View {
	return View{
		Open: o.open,
		Text: o.text,
		Results: Results{
			Politicians: append([]model.Politician(nil), o.results.Politicians...),
			Donors:      append([]model.Donor(nil), o.results.Donors...),
		},
		Loading: o.seq.Pending(),
		Theme:   o.theme,
	}
}

func (o *Overlay) changed() {
	if o.deps.OnChange != nil {
		o.deps.OnChange()
	}
}
