package page

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/papertrail/internal/bus"
	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/route"
	"github.com/roach88/papertrail/internal/selection"
)

// PoliticianView is what the politician page renders.
type PoliticianView struct {
	selection.PoliticianState

	Input          string
	Hydrating      bool
	HydrationError *HydrationError
}

// PoliticianPage hosts politician search, detail and comparison.
type PoliticianPage struct {
	core

	sel      *selection.Politicians
	hydrator *engine.Sequencer[[]model.Politician]
}

var _ Page = (*PoliticianPage)(nil)

// NewPoliticianPage creates an unmounted page.
func NewPoliticianPage(deps Deps) *PoliticianPage {
	p := &PoliticianPage{core: newCore(model.KindPolitician, deps)}

	selOpts := append([]selection.Option{
		selection.WithLogger(p.logger),
		selection.WithOnChange(p.stateChanged),
		selection.WithSequencerOptions(p.deps.SequencerOpts...),
	}, p.deps.SelectionOpts...)
	p.sel = selection.NewPoliticians(p.deps.Gateway, p.deps.Poster, selOpts...)

	seqOpts := append([]engine.SequencerOption{engine.WithSequencerLogger(p.logger)}, p.deps.SequencerOpts...)
	p.hydrator = engine.NewSequencer[[]model.Politician]("politician.hydrate", p.deps.Poster, seqOpts...)

	p.startInput(p.submit)
	return p
}

// Selection exposes the state machine for vote and topic controls.
func (p *PoliticianPage) Selection() *selection.Politicians {
	return p.sel
}

// Mount subscribes to overlay selections and hydrates from the current
// location.
func (p *PoliticianPage) Mount() {
	if p.mounted {
		return
	}
	p.mounted = true
	p.unsubscribe = p.deps.Bus.Subscribe(model.KindPolitician, p.adopt)
	p.logger.Debug("page mounted", "location", p.adapter.History().Location().String())
	p.RouteChanged()
}

// Unmount abandons every call in flight. Late completions are dropped.
func (p *PoliticianPage) Unmount() {
	if !p.mounted {
		return
	}
	p.unmountCore()
	p.hydrator.Close()
	p.sel.Close()
	p.logger.Debug("page unmounted")
}

// Busy reports whether any call is in flight.
func (p *PoliticianPage) Busy() bool {
	return p.sel.Busy() || p.hydrator.Pending()
}

// RouteChanged hydrates from the current location, then syncs the URL if
// hydration settled without a fetch.
func (p *PoliticianPage) RouteChanged() {
	if !p.mounted {
		return
	}
	p.observeRoute()

	snap := p.adapter.Snapshot()
	if snap.Kind != model.KindPolitician {
		return
	}

	p.reconciling = true
	p.hydrate(snap)
	p.reconciling = false

	p.notify()
	p.syncURL()
}

// hydrate applies the first matching branch: entity id, comparison ids,
// search query.
func (p *PoliticianPage) hydrate(snap route.Snapshot) {
	switch {
	case snap.EntityID != "":
		target := route.SearchPath(model.KindPolitician) + "/" + snap.EntityID
		if p.keepPending(target) {
			return
		}
		id, err := strconv.ParseInt(snap.EntityID, 10, 64)
		if err != nil {
			p.failHydration(target, malformedID(gateway.OpGetPolitician, snap.EntityID))
			return
		}
		if cur, ok := p.sel.Selected(); ok && cur.ID == id {
			return
		}
		if found, ok := p.sel.FindResult(id); ok {
			p.hydrationErr = nil
			p.sel.Select(found)
			return
		}
		p.coldFetch(target, []int64{id}, func(ps []model.Politician) {
			p.sel.Select(ps[0])
		})

	case len(snap.ComparisonIDs) >= selection.MaxComparison:
		target := route.BuildComparisonURL(snap.ComparisonIDs)
		if p.keepPending(target) {
			return
		}
		if _, selected := p.sel.Selected(); !selected && snap.SameComparison(p.sel.ComparisonIDs()) {
			return
		}
		found := make([]model.Politician, 0, len(snap.ComparisonIDs))
		for _, id := range snap.ComparisonIDs {
			if pol, ok := p.sel.FindResult(id); ok {
				found = append(found, pol)
			}
		}
		if len(found) == len(snap.ComparisonIDs) {
			p.hydrationErr = nil
			p.sel.SetComparison(found)
			return
		}
		// Partial resolution counts as none: fetch every id.
		p.coldFetch(target, snap.ComparisonIDs, p.sel.SetComparison)

	case snap.SearchQuery != "" && snap.SearchQuery != p.sel.Query():
		p.cancelHydration()
		p.inputText = snap.SearchQuery
		p.sel.SetQuery(snap.SearchQuery)
		if model.QueryLength(snap.SearchQuery) >= model.KindPolitician.MinQueryLength() {
			p.sel.Search(snap.SearchQuery)
		}

	default:
		p.cancelHydration()
	}
}

// keepPending reports whether a cold fetch for target is already running.
// A fetch for any other target is abandoned.
func (p *PoliticianPage) keepPending(target string) bool {
	if p.pendingTarget == target {
		return true
	}
	p.cancelHydration()
	return false
}

func (p *PoliticianPage) cancelHydration() {
	if p.pendingTarget == "" {
		return
	}
	p.logger.Debug("hydration fetch abandoned", "target", p.pendingTarget)
	p.hydrator.Cancel()
	p.pendingTarget = ""
}

// coldFetch loads ids concurrently and applies them in order. Any failure
// leaves state untouched.
func (p *PoliticianPage) coldFetch(target string, ids []int64, apply func([]model.Politician)) {
	p.pendingTarget = target
	gw := p.deps.Gateway
	ids = append([]int64(nil), ids...)

	p.logger.Debug("cold hydration", "target", target, "ids", ids)
	p.hydrator.Run(
		func(ctx context.Context) ([]model.Politician, error) {
			out := make([]model.Politician, len(ids))
			g, gctx := errgroup.WithContext(ctx)
			for i, id := range ids {
				g.Go(func() error {
					pol, err := gw.GetPolitician(gctx, id)
					if err != nil {
						return err
					}
					out[i] = pol
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
			return out, nil
		},
		func(ps []model.Politician, err error) {
			p.pendingTarget = ""
			if err != nil {
				p.failHydration(target, err)
			} else {
				p.hydrationErr = nil
				p.reconciling = true
				apply(ps)
				p.reconciling = false
			}
			p.notify()
			p.syncURL()
		},
	)
}

func (p *PoliticianPage) stateChanged() {
	p.notify()
	if p.settled() {
		p.syncURL()
	}
}

// syncURL writes the selection or a complete comparison into the URL when
// the URL does not show it yet.
func (p *PoliticianPage) syncURL() {
	if !p.mounted || !p.settled() {
		return
	}
	snap := p.adapter.Snapshot()
	if snap.Kind != model.KindPolitician {
		return
	}

	if pol, ok := p.sel.Selected(); ok {
		if snap.EntityID != strconv.FormatInt(pol.ID, 10) {
			p.writeBack(route.EntityURL(model.KindPolitician, pol.ID), func() {
				p.adapter.NavigateToEntity(pol.ID, model.KindPolitician)
			})
		}
		return
	}
	if p.sel.Comparing() {
		ids := p.sel.ComparisonIDs()
		if !snap.SameComparison(ids) {
			p.writeBack(route.BuildComparisonURL(ids), func() {
				p.adapter.NavigateToComparison(ids)
			})
		}
	}
}

// adopt takes an entity published by the overlay without refetching it.
func (p *PoliticianPage) adopt(e bus.EntitySelected) {
	if !p.mounted || e.Politician == nil {
		return
	}
	p.beginGesture()
	p.sel.Select(*e.Politician)
}

// beginGesture starts a flow for an explicit user action. A pending cold
// hydration is abandoned in favour of the user's choice.
func (p *PoliticianPage) beginGesture() {
	p.beginFlow()
	p.cancelHydration()
	p.hydrationErr = nil
}

// Input records typed text and searches once typing pauses.
func (p *PoliticianPage) Input(text string) {
	p.inputText = text
	p.sel.SetQuery(text)
	p.input.Call(text)
	p.notify()
}

// SubmitSearch searches text immediately.
func (p *PoliticianPage) SubmitSearch(text string) {
	p.input.Cancel()
	p.submit(text)
}

func (p *PoliticianPage) submit(text string) {
	p.beginGesture()
	p.inputText = text
	p.sel.SetQuery(text)
	p.sel.Search(text)
	p.navigateSearch(text)
}

// SelectResult selects a politician from the current results.
func (p *PoliticianPage) SelectResult(id int64) error {
	pol, ok := p.sel.FindResult(id)
	if !ok {
		return fmt.Errorf("politician %d: %w", id, errNotInResults)
	}
	p.beginGesture()
	p.sel.Select(pol)
	return nil
}

// ToggleComparison adds or removes a politician from the current results.
func (p *PoliticianPage) ToggleComparison(id int64) error {
	pol, ok := p.sel.FindResult(id)
	if !ok {
		return fmt.Errorf("politician %d: %w", id, errNotInResults)
	}
	p.beginGesture()
	p.sel.ToggleComparison(pol)
	return nil
}

// ExitDetail leaves the detail view.
func (p *PoliticianPage) ExitDetail() {
	p.beginGesture()
	p.sel.Clear()
	p.adapter.NavigateBack()
}

// ExitComparison leaves the comparison view.
func (p *PoliticianPage) ExitComparison() {
	p.beginGesture()
	p.sel.ClearComparison()
	p.adapter.NavigateBack()
}

// View copies the renderable state.
func (p *PoliticianPage) View() PoliticianView {
	return PoliticianView{
		PoliticianState: p.sel.Snapshot(),
		Input:           p.inputText,
		Hydrating:       p.pendingTarget != "",
		HydrationError:  p.hydrationErr,
	}
}
