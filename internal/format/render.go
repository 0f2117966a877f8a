package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/papertrail/internal/app"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/overlay"
	"github.com/roach88/papertrail/internal/page"
	"github.com/roach88/papertrail/internal/selection"
)

// Render writes a deterministic plain-text view of s.
func Render(w io.Writer, s app.State) error {
	r := &renderer{}
	r.linef(0, "location: %s", s.Location)
	switch {
	case s.NotFound:
		r.linef(0, "page: not found")
	case s.Kind != "":
		r.linef(0, "page: %s %s", s.Kind, s.Page)
	}
	r.overlay(s.Overlay)
	if s.Politician != nil {
		r.politician(*s.Politician)
	}
	if s.Donor != nil {
		r.donor(*s.Donor)
	}
	_, err := io.WriteString(w, r.String())
	return err
}

// RenderString is Render into a string.
func RenderString(s app.State) string {
	var b strings.Builder
	_ = Render(&b, s)
	return b.String()
}

type renderer struct {
	strings.Builder
}

func (r *renderer) linef(indent int, format string, args ...any) {
	r.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(r, format, args...)
	r.WriteByte('\n')
}

func (r *renderer) overlay(v overlay.View) {
	state := "closed"
	if v.Open {
		state = "open"
	}
	r.linef(0, "overlay: %s theme=%s", state, v.Theme)
	if !v.Open {
		return
	}
	r.linef(1, "text: %q", v.Text)
	if v.Loading {
		r.linef(1, "loading")
	}
	for _, p := range v.Results.Politicians {
		r.linef(1, "politician %s", Politician(p))
	}
	for _, d := range v.Results.Donors {
		r.linef(1, "donor %s", Donor(d))
	}
}

func (r *renderer) search(query, input string, status selection.SearchStatus, failure *model.Failure, n int) {
	r.linef(1, "input: %q", input)
	r.linef(1, "query: %q", query)
	line := fmt.Sprintf("search: %s", status)
	if status == selection.ResultsShown {
		line += fmt.Sprintf(" (%d)", n)
	}
	r.linef(1, "%s", line)
	if failure != nil {
		r.linef(2, "error: %s", failure)
	}
}

func (r *renderer) hydration(hydrating bool, err *page.HydrationError) {
	if hydrating {
		r.linef(1, "hydrating")
	}
	if err != nil {
		r.linef(1, "hydration error: %s %s", err.Kind, err.Target)
	}
}

func (r *renderer) politician(v page.PoliticianView) {
	r.linef(0, "politician:")
	r.hydration(v.Hydrating, v.HydrationError)
	r.search(v.Query, v.Input, v.SearchStatus, v.SearchError, len(v.Results))
	for _, p := range v.Results {
		r.linef(2, "%s", Politician(p))
	}

	if len(v.Comparison) > 0 {
		state := "pending"
		if v.Comparing() {
			state = "comparing"
		}
		r.linef(1, "comparison: %s", state)
		for _, p := range v.Comparison {
			r.linef(2, "%s", Politician(p))
		}
	}

	r.linef(1, "selection: %s", v.SelectStatus)
	if v.Selected == nil {
		return
	}
	r.linef(2, "%s", Politician(*v.Selected))
	if v.DependentError != nil {
		r.linef(2, "error: %s", v.DependentError)
	}
	if v.SelectStatus == selection.Selected {
		q := v.VoteQuery
		pg := v.Dependent.Pagination
		r.linef(2, "votes: page %d/%d (%d total) sort=%s", pg.CurrentPage, pg.TotalPages, pg.TotalVotes, q.Sort)
		if len(q.Types) > 0 || len(q.Subjects) > 0 {
			r.linef(3, "filters: type=%s subject=%s", strings.Join(q.Types, ","), strings.Join(q.Subjects, ","))
		}
		for _, vote := range v.Dependent.Votes {
			r.linef(3, "%s", Vote(vote))
		}
	}

	topic := v.Topic
	if topic == "" {
		topic = "all"
	}
	switch {
	case v.SummaryLoading:
		r.linef(2, "summary (%s): loading", topic)
	case v.SummaryError != nil:
		r.linef(2, "summary (%s): %s", topic, v.SummaryError)
	default:
		r.linef(2, "summary (%s):", topic)
		for _, s := range v.Summary {
			r.linef(3, "%s %s", s.Industry, Currency(s.TotalAmount))
		}
	}
}

func (r *renderer) donor(v page.DonorView) {
	r.linef(0, "donor:")
	r.hydration(v.Hydrating, v.HydrationError)
	r.search(v.Query, v.Input, v.SearchStatus, v.SearchError, len(v.Results))
	for _, d := range v.Results {
		r.linef(2, "%s", Donor(d))
	}

	r.linef(1, "selection: %s", v.SelectStatus)
	if v.Selected == nil {
		return
	}
	r.linef(2, "%s", Donor(*v.Selected))
	if v.DependentError != nil {
		r.linef(2, "error: %s", v.DependentError)
	}
	if v.SelectStatus == selection.Selected {
		var total float64
		for _, d := range v.Dependent {
			total += d.Amount
		}
		r.linef(2, "donations: %d totalling %s", len(v.Dependent), Currency(total))
		for _, d := range v.Dependent {
			r.linef(3, "%s", Donation(d))
		}
	}
}
