package page_test

import (
	"testing"

	"github.com/roach88/papertrail/internal/bus"
	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/page"
	"github.com/roach88/papertrail/internal/route"
	"github.com/roach88/papertrail/internal/testutil"
)

var (
	warren  = model.Politician{ID: 1, FirstName: "Elizabeth", LastName: "Warren", Party: "D", State: "MA", IsActive: true}
	walsh   = model.Politician{ID: 2, FirstName: "Joe", LastName: "Walsh", Party: "R", State: "IL"}
	sanders = model.Politician{ID: 3, FirstName: "Bernie", LastName: "Sanders", Party: "I", State: "VT", IsActive: true}
	boeing  = model.Donor{ID: 10, Name: "Boeing Co", DonorType: "PAC"}
)

type fixture struct {
	e       *engine.Engine
	gw      *testutil.FakeGateway
	history *route.History
	adapter *route.Adapter
	bus     *bus.Bus
	clock   *testutil.ManualClock
	rec     *testutil.SequenceRecorder

	navigations int
}

func newFixture(t *testing.T, start string) *fixture {
	t.Helper()
	logger := testutil.DiscardLogger()
	h := route.NewHistory(route.MustLocation(start))
	f := &fixture{
		e: testutil.StartEngine(t),
		gw: testutil.NewFakeGateway().
			AddPoliticians(warren, walsh, sanders).
			AddDonors(boeing),
		history: h,
		adapter: route.NewAdapter(h, nil, logger),
		bus:     bus.New(logger),
		clock:   testutil.NewManualClock(),
		rec:     testutil.NewSequenceRecorder(),
	}
	return f
}

func (f *fixture) deps() page.Deps {
	return page.Deps{
		Gateway:    f.gw,
		Poster:     f.e,
		Adapter:    f.adapter,
		Bus:        f.bus,
		Scheduler:  f.clock,
		InputDelay: page.DefaultInputDelay,
		Logger:     testutil.DiscardLogger(),
		Tokens:     engine.NewSequenceGenerator("flow"),
		SequencerOpts: []engine.SequencerOption{
			engine.WithSequencerObserver(f.rec),
		},
	}
}

// mount creates p on the loop, routes history changes to it the way the
// application shell does, and mounts it.
func mount[P page.Page](t *testing.T, f *fixture, build func(page.Deps) P) P {
	t.Helper()
	var p P
	testutil.OnLoop(t, f.e, func() {
		p = build(f.deps())
		stop := f.history.Listen(func(route.Location) {
			f.e.Post(func() {
				f.navigations++
				p.RouteChanged()
			})
		})
		t.Cleanup(stop)
		p.Mount()
	})
	return p
}

func (f *fixture) location(t *testing.T) string {
	var loc string
	testutil.OnLoop(t, f.e, func() { loc = f.history.Location().String() })
	return loc
}

// settle waits until busy is false and the loop has drained.
func (f *fixture) settle(t *testing.T, p page.Page) {
	t.Helper()
	testutil.Eventually(t, f.e, func() bool { return !p.Busy() && f.e.Pending() == 0 })
}
