package selection

import (
	"context"
	"slices"

	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
)

// PoliticianState is a copy of the politician page's selection state.
type PoliticianState struct {
	State[model.Politician, model.VoteResponse]

	Comparison []model.Politician
	VoteQuery  model.VoteQuery

	Topic          string
	Summary        []model.DonationSummary
	SummaryLoading bool
	SummaryError   *model.Failure
}

// Comparing reports whether a complete comparison is shown.
func (s PoliticianState) Comparing() bool {
	return len(s.Comparison) == MaxComparison
}

// Politicians is the politician state machine. Its dependent data is a page
// of the vote record; the industry donation summary loads alongside it on a
// second slot. Selection and comparison exclude each other.
type Politicians struct {
	*Machine[model.Politician, model.VoteResponse]

	comparison Comparison[model.Politician]
	voteQuery  model.VoteQuery

	gw         gateway.Gateway
	summarySeq *engine.Sequencer[[]model.DonationSummary]
	topic      string
	summary    []model.DonationSummary
	sumPending bool
	sumErr     *model.Failure
}

// NewPoliticians creates the politician machine over gw.
func NewPoliticians(gw gateway.Gateway, p engine.Poster, opts ...Option) *Politicians {
	o := buildOptions(opts)
	ps := &Politicians{
		gw:        gw,
		voteQuery: model.DefaultVoteQuery(),
	}
	ps.Machine = NewMachine(model.KindPolitician, p, gw.SearchPoliticians, ps.votesLoader, opts...)
	seqOpts := append([]engine.SequencerOption{engine.WithSequencerLogger(o.logger)}, o.seqOpts...)
	ps.summarySeq = engine.NewSequencer[[]model.DonationSummary]("politician.summary", p, seqOpts...)
	return ps
}

// votesLoader captures the vote query on the loop.
func (ps *Politicians) votesLoader(pol model.Politician) func(context.Context) (model.VoteResponse, error) {
	q := ps.voteQuery.Normalized()
	q.Types = slices.Clone(q.Types)
	q.Subjects = slices.Clone(q.Subjects)
	return func(ctx context.Context) (model.VoteResponse, error) {
		return ps.gw.GetPoliticianVotes(ctx, pol.ID, q)
	}
}

// Select makes pol the selection and clears the comparison. Selecting a
// different politician resets the vote query and topic.
func (ps *Politicians) Select(pol model.Politician) {
	ps.Batch(func() {
		ps.comparison.Clear()
		if cur, ok := ps.Selected(); !ok || cur.ID != pol.ID {
			ps.voteQuery = model.DefaultVoteQuery()
			ps.topic = ""
		}
		ps.Machine.Select(pol)
		ps.loadSummary(pol.ID)
	})
}

// ToggleComparison clears the selection, then adds or removes pol.
func (ps *Politicians) ToggleComparison(pol model.Politician) {
	ps.Batch(func() {
		ps.clearSelection()
		ps.comparison.Toggle(pol)
		ps.changed()
	})
}

// ClearComparison empties the comparison.
func (ps *Politicians) ClearComparison() {
	if ps.comparison.Len() == 0 {
		return
	}
	ps.comparison.Clear()
	ps.changed()
}

// SetComparison rebuilds the comparison from pols in order. When the
// members already match, nothing changes.
func (ps *Politicians) SetComparison(pols []model.Politician) {
	ids := make([]int64, len(pols))
	for i, p := range pols {
		ids[i] = p.ID
	}
	if _, selected := ps.Selected(); !selected && slices.Equal(ps.comparison.IDs(), ids) {
		return
	}
	ps.Batch(func() {
		ps.clearSelection()
		ps.comparison.Clear()
		for _, p := range pols {
			ps.comparison.Toggle(p)
		}
		ps.changed()
	})
}

// Comparison returns the comparison members in order.
func (ps *Politicians) Comparison() []model.Politician {
	return ps.comparison.Members()
}

// ComparisonIDs returns the comparison member ids in order.
func (ps *Politicians) ComparisonIDs() []int64 {
	return ps.comparison.IDs()
}

// Comparing reports whether a complete comparison is held.
func (ps *Politicians) Comparing() bool {
	return ps.comparison.Complete()
}

// Clear drops the selection, its votes and its summary.
func (ps *Politicians) Clear() {
	ps.Batch(ps.clearSelection)
}

func (ps *Politicians) clearSelection() {
	ps.Machine.Clear()
	ps.summarySeq.Cancel()
	if ps.summary != nil || ps.sumPending || ps.sumErr != nil {
		ps.summary = nil
		ps.sumPending = false
		ps.sumErr = nil
		ps.changed()
	}
}

// VoteQuery returns the current vote query.
func (ps *Politicians) VoteQuery() model.VoteQuery {
	return ps.voteQuery
}

// SetPage moves to page n of the vote record.
func (ps *Politicians) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	ps.updateVotes(func(q *model.VoteQuery) { q.Page = n })
}

// SetSort orders the vote record and returns to the first page.
func (ps *Politicians) SetSort(s model.SortOrder) {
	ps.updateVotes(func(q *model.VoteQuery) {
		q.Sort = s
		q.Page = 1
	})
}

// SetBillTypes filters by bill number prefix and returns to the first page.
func (ps *Politicians) SetBillTypes(types []string) {
	ps.updateVotes(func(q *model.VoteQuery) {
		q.Types = slices.Clone(types)
		q.Page = 1
	})
}

// SetSubjects filters by bill subject and returns to the first page.
func (ps *Politicians) SetSubjects(subjects []string) {
	ps.updateVotes(func(q *model.VoteQuery) {
		q.Subjects = slices.Clone(subjects)
		q.Page = 1
	})
}

func (ps *Politicians) updateVotes(fn func(*model.VoteQuery)) {
	next := ps.voteQuery
	fn(&next)
	next = next.Normalized()
	if voteQueryEqual(next, ps.voteQuery) {
		return
	}
	ps.Batch(func() {
		ps.voteQuery = next
		ps.changed()
		ps.Reload()
	})
}

func voteQueryEqual(a, b model.VoteQuery) bool {
	return a.Page == b.Page && a.Sort == b.Sort &&
		slices.Equal(a.Types, b.Types) && slices.Equal(a.Subjects, b.Subjects)
}

// Topic returns the bill topic filtering the donation summary.
func (ps *Politicians) Topic() string {
	return ps.topic
}

// SetTopic filters the donation summary to industries tied to topic and
// reloads it. An empty topic removes the filter.
func (ps *Politicians) SetTopic(topic string) {
	if topic == ps.topic {
		return
	}
	ps.topic = topic
	pol, ok := ps.Selected()
	if !ok {
		ps.changed()
		return
	}
	ps.Batch(func() {
		ps.changed()
		ps.loadSummary(pol.ID)
	})
}

func (ps *Politicians) loadSummary(id int64) {
	ps.sumPending = true
	ps.sumErr = nil
	ps.summary = nil
	ps.changed()

	topic := ps.topic
	ps.summarySeq.Run(
		func(ctx context.Context) ([]model.DonationSummary, error) {
			return ps.gw.GetDonationSummary(ctx, id, topic)
		},
		func(res []model.DonationSummary, err error) {
			ps.sumPending = false
			if err != nil {
				if gateway.Classify(err) == model.ErrCancelled {
					return
				}
				ps.logger.Warn("donation summary failed", "id", id, "topic", topic, "error", err)
				ps.sumErr = gateway.FailureOf(err)
			} else {
				ps.summary = res
			}
			ps.changed()
		},
	)
}

// Busy reports whether any call is in flight.
func (ps *Politicians) Busy() bool {
	return ps.Machine.Busy() || ps.summarySeq.Pending()
}

// Close abandons every call in flight.
func (ps *Politicians) Close() {
	ps.Machine.Close()
	ps.summarySeq.Close()
}

// Snapshot copies the observable state.
func (ps *Politicians) Snapshot() PoliticianState {
	q := ps.voteQuery
	q.Types = slices.Clone(q.Types)
	q.Subjects = slices.Clone(q.Subjects)
	return PoliticianState{
		State:          ps.Machine.Snapshot(),
		Comparison:     ps.comparison.Members(),
		VoteQuery:      q,
		Topic:          ps.topic,
		Summary:        slices.Clone(ps.summary),
		SummaryLoading: ps.sumPending,
		SummaryError:   ps.sumErr,
	}
}
