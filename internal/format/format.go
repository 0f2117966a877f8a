// Package format turns client state into display text: currency, dates and
// a plain-text rendering of the whole application used by the CLI and the
// scenario harness.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/papertrail/internal/model"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats amount as whole US dollars with grouping, e.g. "$2,700".
// Cents round half away from zero.
func Currency(amount float64) string {
	rounded := int64(math.Round(amount))
	if rounded < 0 {
		return printer.Sprintf("-$%d", -rounded)
	}
	return printer.Sprintf("$%d", rounded)
}

// dateLayouts are the forms the data service emits dates in.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.RFC1123,
	"2006-01-02T15:04:05",
}

// InvalidDate is shown for dates that cannot be parsed.
const InvalidDate = "Invalid date"

// Date formats an ISO or HTTP date as "Jul 30, 2018", in UTC so date-only
// strings never shift a day.
func Date(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("Jan 2, 2006")
		}
	}
	return InvalidDate
}

// Politician is the one-line summary of a politician.
func Politician(p model.Politician) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s (%s, %s)", p.ID, p.FullName(), p.Party, p.State)
	if p.Role != nil && *p.Role != "" {
		fmt.Fprintf(&b, " %s", *p.Role)
	}
	if !p.IsActive {
		b.WriteString(" [inactive]")
	}
	return b.String()
}

// Donor is the one-line summary of a donor.
func Donor(d model.Donor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", d.ID, d.Name)
	if d.DonorType != "" {
		fmt.Fprintf(&b, " (%s)", d.DonorType)
	}
	if d.Employer != nil && *d.Employer != "" {
		fmt.Fprintf(&b, " employer=%q", *d.Employer)
	}
	if d.State != nil && *d.State != "" {
		fmt.Fprintf(&b, " state=%s", *d.State)
	}
	return b.String()
}

// Donation is the one-line summary of a contribution.
func Donation(d model.Donation) string {
	return fmt.Sprintf("%s %s to %s %s (%s, %s)",
		Date(d.Date), Currency(d.Amount), d.FirstName, d.LastName, d.Party, d.State)
}

// Vote is the one-line summary of a recorded vote.
func Vote(v model.Vote) string {
	line := fmt.Sprintf("%s %-4s %s: %s", Date(v.DateIntroduced), v.Vote, v.BillNumber, v.Title)
	if len(v.Subjects) > 0 {
		line += " [" + strings.Join(v.Subjects, ", ") + "]"
	}
	return line
}
