package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
)

// recorder is a gateway that logs every call before delegating.
//
// Thread-safety: calls arrive from sequencer goroutines; the log is guarded
// by mu.
type recorder struct {
	next gateway.Gateway

	mu    sync.Mutex
	calls []string
}

var _ gateway.Gateway = (*recorder)(nil)

func newRecorder(next gateway.Gateway) *recorder {
	return &recorder{next: next}
}

func (r *recorder) record(op, format string, args ...any) {
	line := op
	if format != "" {
		line += " " + fmt.Sprintf(format, args...)
	}
	r.mu.Lock()
	r.calls = append(r.calls, line)
	r.mu.Unlock()
}

// take returns the calls since the last take, sorted.
func (r *recorder) take() []string {
	r.mu.Lock()
	calls := r.calls
	r.calls = nil
	r.mu.Unlock()
	slices.Sort(calls)
	return calls
}

func (r *recorder) SearchPoliticians(ctx context.Context, text string) ([]model.Politician, error) {
	r.record(gateway.OpSearchPoliticians, "%q", text)
	return r.next.SearchPoliticians(ctx, text)
}

func (r *recorder) SearchDonors(ctx context.Context, text string) ([]model.Donor, error) {
	r.record(gateway.OpSearchDonors, "%q", text)
	return r.next.SearchDonors(ctx, text)
}

func (r *recorder) GetPolitician(ctx context.Context, id int64) (model.Politician, error) {
	r.record(gateway.OpGetPolitician, "%d", id)
	return r.next.GetPolitician(ctx, id)
}

func (r *recorder) GetDonor(ctx context.Context, id int64) (model.Donor, error) {
	r.record(gateway.OpGetDonor, "%d", id)
	return r.next.GetDonor(ctx, id)
}

func (r *recorder) GetDonorDonations(ctx context.Context, id int64) ([]model.Donation, error) {
	r.record(gateway.OpGetDonorDonations, "%d", id)
	return r.next.GetDonorDonations(ctx, id)
}

func (r *recorder) GetPoliticianVotes(ctx context.Context, id int64, q model.VoteQuery) (model.VoteResponse, error) {
	r.record(gateway.OpGetPoliticianVotes, "%d %s", id, describeVoteQuery(q))
	return r.next.GetPoliticianVotes(ctx, id, q)
}

func (r *recorder) GetDonationSummary(ctx context.Context, id int64, topic string) ([]model.DonationSummary, error) {
	if topic == "" {
		r.record(gateway.OpGetDonationSummary, "%d", id)
	} else {
		r.record(gateway.OpGetDonationSummary, "%d topic=%q", id, topic)
	}
	return r.next.GetDonationSummary(ctx, id, topic)
}

func (r *recorder) GetBillSubjects(ctx context.Context) ([]string, error) {
	r.record(gateway.OpGetBillSubjects, "")
	return r.next.GetBillSubjects(ctx)
}

func describeVoteQuery(q model.VoteQuery) string {
	q = q.Normalized()
	s := fmt.Sprintf("page=%d sort=%s", q.Page, q.Sort)
	if len(q.Types) > 0 {
		s += " type=" + strings.Join(q.Types, ",")
	}
	if len(q.Subjects) > 0 {
		s += " subject=" + strings.Join(q.Subjects, ",")
	}
	return s
}
