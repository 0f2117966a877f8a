package page

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/papertrail/internal/bus"
	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/route"
	"github.com/roach88/papertrail/internal/selection"
)

// DonorView is what the donor page renders.
type DonorView struct {
	selection.DonorState

	Input          string
	Hydrating      bool
	HydrationError *HydrationError
}

// DonorPage hosts donor search and detail.
type DonorPage struct {
	core

	sel      *selection.Donors
	hydrator *engine.Sequencer[model.Donor]
}

var _ Page = (*DonorPage)(nil)

// NewDonorPage creates an unmounted page.
func NewDonorPage(deps Deps) *DonorPage {
	p := &DonorPage{core: newCore(model.KindDonor, deps)}

	selOpts := append([]selection.Option{
		selection.WithLogger(p.logger),
		selection.WithOnChange(p.stateChanged),
		selection.WithSequencerOptions(p.deps.SequencerOpts...),
	}, p.deps.SelectionOpts...)
	p.sel = selection.NewDonors(p.deps.Gateway, p.deps.Poster, selOpts...)

	seqOpts := append([]engine.SequencerOption{engine.WithSequencerLogger(p.logger)}, p.deps.SequencerOpts...)
	p.hydrator = engine.NewSequencer[model.Donor]("donor.hydrate", p.deps.Poster, seqOpts...)

	p.startInput(p.submit)
	return p
}

// Selection exposes the state machine.
func (p *DonorPage) Selection() *selection.Donors {
	return p.sel
}

func (p *DonorPage) Mount() {
	if p.mounted {
		return
	}
	p.mounted = true
	p.unsubscribe = p.deps.Bus.Subscribe(model.KindDonor, p.adopt)
	p.logger.Debug("page mounted", "location", p.adapter.History().Location().String())
	p.RouteChanged()
}

func (p *DonorPage) Unmount() {
	if !p.mounted {
		return
	}
	p.unmountCore()
	p.hydrator.Close()
	p.sel.Close()
	p.logger.Debug("page unmounted")
}

func (p *DonorPage) Busy() bool {
	return p.sel.Busy() || p.hydrator.Pending()
}

func (p *DonorPage) RouteChanged() {
	if !p.mounted {
		return
	}
	p.observeRoute()

	snap := p.adapter.Snapshot()
	if snap.Kind != model.KindDonor {
		return
	}

	p.reconciling = true
	p.hydrate(snap)
	p.reconciling = false

	p.notify()
	p.syncURL()
}

// hydrate has no comparison branch: donors are never compared.
func (p *DonorPage) hydrate(snap route.Snapshot) {
	switch {
	case snap.EntityID != "":
		target := route.SearchPath(model.KindDonor) + "/" + snap.EntityID
		if p.pendingTarget == target {
			return
		}
		p.cancelHydration()

		id, err := strconv.ParseInt(snap.EntityID, 10, 64)
		if err != nil {
			p.failHydration(target, malformedID(gateway.OpGetDonor, snap.EntityID))
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
		p.coldFetch(target, id)

	case snap.SearchQuery != "" && snap.SearchQuery != p.sel.Query():
		p.cancelHydration()
		p.inputText = snap.SearchQuery
		p.sel.SetQuery(snap.SearchQuery)
		if model.QueryLength(snap.SearchQuery) >= model.KindDonor.MinQueryLength() {
			p.sel.Search(snap.SearchQuery)
		}

	default:
		p.cancelHydration()
	}
}

func (p *DonorPage) cancelHydration() {
	if p.pendingTarget == "" {
		return
	}
	p.logger.Debug("hydration fetch abandoned", "target", p.pendingTarget)
	p.hydrator.Cancel()
	p.pendingTarget = ""
}

func (p *DonorPage) coldFetch(target string, id int64) {
	p.pendingTarget = target
	gw := p.deps.Gateway

	p.logger.Debug("cold hydration", "target", target)
	p.hydrator.Run(
		func(ctx context.Context) (model.Donor, error) {
			return gw.GetDonor(ctx, id)
		},
		func(d model.Donor, err error) {
			p.pendingTarget = ""
			if err != nil {
				p.failHydration(target, err)
			} else {
				p.hydrationErr = nil
				p.reconciling = true
				p.sel.Select(d)
				p.reconciling = false
			}
			p.notify()
			p.syncURL()
		},
	)
}

func (p *DonorPage) stateChanged() {
	p.notify()
	if p.settled() {
		p.syncURL()
	}
}

func (p *DonorPage) syncURL() {
	if !p.mounted || !p.settled() {
		return
	}
	snap := p.adapter.Snapshot()
	if snap.Kind != model.KindDonor {
		return
	}
	d, ok := p.sel.Selected()
	if !ok || snap.EntityID == strconv.FormatInt(d.ID, 10) {
		return
	}
	p.writeBack(route.EntityURL(model.KindDonor, d.ID), func() {
		p.adapter.NavigateToEntity(d.ID, model.KindDonor)
	})
}

func (p *DonorPage) adopt(e bus.EntitySelected) {
	if !p.mounted || e.Donor == nil {
		return
	}
	p.beginGesture()
	p.sel.Select(*e.Donor)
}

func (p *DonorPage) beginGesture() {
	p.beginFlow()
	p.cancelHydration()
	p.hydrationErr = nil
}

// Input records typed text and searches once typing pauses.
func (p *DonorPage) Input(text string) {
	p.inputText = text
	p.sel.SetQuery(text)
	p.input.Call(text)
	p.notify()
}

// SubmitSearch searches text immediately.
func (p *DonorPage) SubmitSearch(text string) {
	p.input.Cancel()
	p.submit(text)
}

func (p *DonorPage) submit(text string) {
	p.beginGesture()
	p.inputText = text
	p.sel.SetQuery(text)
	p.sel.Search(text)
	p.navigateSearch(text)
}

// SelectResult selects a donor from the current results.
func (p *DonorPage) SelectResult(id int64) error {
	d, ok := p.sel.FindResult(id)
	if !ok {
		return fmt.Errorf("donor %d: %w", id, errNotInResults)
	}
	p.beginGesture()
	p.sel.Select(d)
	return nil
}

// ExitDetail leaves the detail view.
func (p *DonorPage) ExitDetail() {
	p.beginGesture()
	p.sel.Clear()
	p.adapter.NavigateBack()
}

func (p *DonorPage) View() DonorView {
	return DonorView{
		DonorState:     p.sel.Snapshot(),
		Input:          p.inputText,
		Hydrating:      p.pendingTarget != "",
		HydrationError: p.hydrationErr,
	}
}
