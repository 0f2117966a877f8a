package testutil

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
)

// Call is one recorded gateway invocation.
type Call struct {
	Op  string
	Arg string
}

// Gate holds a single gateway call until the test releases it.
//
// A held call blocks until Release or Fail is called. By default it also
// returns early with ctx.Err() when its context is cancelled; a gate created
// with HoldStubborn ignores cancellation, modelling a transport that cannot
// abort.
type Gate struct {
	started  chan struct{}
	release  chan struct{}
	err      error
	stubborn bool
	once     sync.Once
}

func newGate(stubborn bool) *Gate {
	return &Gate{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		stubborn: stubborn,
	}
}

// Release lets the held call complete with its normal result.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// Fail lets the held call complete with err.
func (g *Gate) Fail(err error) {
	g.once.Do(func() {
		g.err = err
		close(g.release)
	})
}

// Started is closed once a call has picked up the gate.
func (g *Gate) Started() <-chan struct{} {
	return g.started
}

// WaitStarted fails the test if no call picks up the gate within a second.
func (g *Gate) WaitStarted(t testing.TB) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(time.Second):
		t.Fatal("gated gateway call never started")
	}
}

func (g *Gate) wait(ctx context.Context) error {
	close(g.started)
	if g.stubborn {
		<-g.release
		return g.err
	}
	select {
	case <-g.release:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeGateway is an in-memory gateway.Gateway with call recording, injected
// failures and per-call gates for ordering tests.
//
// Search matches case-insensitively on full name (politicians) or name
// (donors), in fixture order.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeGateway struct {
	mu          sync.Mutex
	politicians []model.Politician
	donors      []model.Donor
	donations   map[int64][]model.Donation
	votes       map[int64][]model.Vote
	summaries   map[int64][]model.DonationSummary
	subjects    []string
	calls       []Call
	failures    map[string]error
	gates       map[string][]*Gate
}

var _ gateway.Gateway = (*FakeGateway)(nil)

// NewFakeGateway creates an empty fake.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		donations: make(map[int64][]model.Donation),
		votes:     make(map[int64][]model.Vote),
		summaries: make(map[int64][]model.DonationSummary),
		failures:  make(map[string]error),
		gates:     make(map[string][]*Gate),
	}
}

// AddPoliticians appends politicians to the fixture set.
func (f *FakeGateway) AddPoliticians(ps ...model.Politician) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.politicians = append(f.politicians, ps...)
	return f
}

// AddDonors appends donors to the fixture set.
func (f *FakeGateway) AddDonors(ds ...model.Donor) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.donors = append(f.donors, ds...)
	return f
}

// SetDonations sets the donation history of a donor.
func (f *FakeGateway) SetDonations(donorID int64, ds ...model.Donation) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.donations[donorID] = ds
	return f
}

// SetVotes sets the full vote record of a politician.
func (f *FakeGateway) SetVotes(politicianID int64, vs ...model.Vote) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes[politicianID] = vs
	return f
}

// SetSummary sets the unfiltered donation summary of a politician.
func (f *FakeGateway) SetSummary(politicianID int64, s ...model.DonationSummary) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[politicianID] = s
	return f
}

// SetSubjects sets the bill subject list.
func (f *FakeGateway) SetSubjects(s ...string) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = s
	return f
}

// FailAll makes every call of op fail with err until cleared with a nil err.
func (f *FakeGateway) FailAll(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Hold queues a gate for the next call of op. Gates are consumed in FIFO
// order, one per call.
func (f *FakeGateway) Hold(op string) *Gate {
	return f.hold(op, false)
}

// HoldStubborn is Hold with a gate that ignores context cancellation.
func (f *FakeGateway) HoldStubborn(op string) *Gate {
	return f.hold(op, true)
}

func (f *FakeGateway) hold(op string, stubborn bool) *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := newGate(stubborn)
	f.gates[op] = append(f.gates[op], g)
	return g
}

// Calls returns a copy of every recorded call.
func (f *FakeGateway) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount returns how many calls of op were made.
func (f *FakeGateway) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (f *FakeGateway) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// enter records the call and blocks on its gate, if any.
func (f *FakeGateway) enter(ctx context.Context, op, arg string) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Arg: arg})
	var g *Gate
	if q := f.gates[op]; len(q) > 0 {
		g = q[0]
		f.gates[op] = q[1:]
	}
	failure := f.failures[op]
	f.mu.Unlock()

	if g != nil {
		if err := g.wait(ctx); err != nil {
			return err
		}
	}
	return failure
}

func (f *FakeGateway) SearchPoliticians(ctx context.Context, text string) ([]model.Politician, error) {
	if err := f.enter(ctx, gateway.OpSearchPoliticians, text); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	needle := strings.ToLower(text)
	out := []model.Politician{}
	for _, p := range f.politicians {
		if strings.Contains(strings.ToLower(p.FullName()), needle) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *FakeGateway) SearchDonors(ctx context.Context, text string) ([]model.Donor, error) {
	if err := f.enter(ctx, gateway.OpSearchDonors, text); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	needle := strings.ToLower(text)
	out := []model.Donor{}
	for _, d := range f.donors {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *FakeGateway) GetPolitician(ctx context.Context, id int64) (model.Politician, error) {
	if err := f.enter(ctx, gateway.OpGetPolitician, fmt.Sprint(id)); err != nil {
		return model.Politician{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.politicians {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Politician{}, gateway.NewNotFoundError(gateway.OpGetPolitician, id)
}

func (f *FakeGateway) GetDonor(ctx context.Context, id int64) (model.Donor, error) {
	if err := f.enter(ctx, gateway.OpGetDonor, fmt.Sprint(id)); err != nil {
		return model.Donor{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.donors {
		if d.ID == id {
			return d, nil
		}
	}
	return model.Donor{}, gateway.NewNotFoundError(gateway.OpGetDonor, id)
}

func (f *FakeGateway) GetDonorDonations(ctx context.Context, id int64) ([]model.Donation, error) {
	if err := f.enter(ctx, gateway.OpGetDonorDonations, fmt.Sprint(id)); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Donation{}, f.donations[id]...), nil
}

// GetPoliticianVotes pages the fixture votes in fixture order. Sort and
// filters are recorded in the call argument but not applied.
func (f *FakeGateway) GetPoliticianVotes(ctx context.Context, id int64, q model.VoteQuery) (model.VoteResponse, error) {
	q = q.Normalized()
	arg := fmt.Sprintf("%d?%s", id, gateway.VoteQueryValues(q).Encode())
	if err := f.enter(ctx, gateway.OpGetPoliticianVotes, arg); err != nil {
		return model.VoteResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	all := f.votes[id]
	total := len(all)
	pages := (total + model.VotesPerPage - 1) / model.VotesPerPage
	start := min((q.Page-1)*model.VotesPerPage, total)
	end := min(start+model.VotesPerPage, total)
	return model.VoteResponse{
		Pagination: model.VotePagination{CurrentPage: q.Page, TotalPages: pages, TotalVotes: total},
		Votes:      append([]model.Vote{}, all[start:end]...),
	}, nil
}

func (f *FakeGateway) GetDonationSummary(ctx context.Context, id int64, topic string) ([]model.DonationSummary, error) {
	if err := f.enter(ctx, gateway.OpGetDonationSummary, fmt.Sprintf("%d:%s", id, topic)); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DonationSummary{}, f.summaries[id]...), nil
}

func (f *FakeGateway) GetBillSubjects(ctx context.Context) ([]string, error) {
	if err := f.enter(ctx, gateway.OpGetBillSubjects, ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.subjects), nil
}
