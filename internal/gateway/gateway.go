// Package gateway defines the client's view of the remote read-only data
// service and an HTTP implementation of it.
//
// The core depends only on the Gateway interface and on Classify, which
// maps any failure onto the model.ErrorKind taxonomy.
package gateway

import (
	"context"

	"github.com/roach88/papertrail/internal/model"
)

// Gateway is the query interface of the data service. Every call may block
// on the network and honours ctx cancellation where the transport can.
type Gateway interface {
	SearchPoliticians(ctx context.Context, text string) ([]model.Politician, error)
	SearchDonors(ctx context.Context, text string) ([]model.Donor, error)
	GetPolitician(ctx context.Context, id int64) (model.Politician, error)
	GetDonor(ctx context.Context, id int64) (model.Donor, error)
	GetDonorDonations(ctx context.Context, id int64) ([]model.Donation, error)
	GetPoliticianVotes(ctx context.Context, id int64, q model.VoteQuery) (model.VoteResponse, error)

	// GetDonationSummary totals a politician's donations by industry. A
	// non-empty topic restricts the summary to industries tied to that bill
	// topic.
	GetDonationSummary(ctx context.Context, id int64, topic string) ([]model.DonationSummary, error)

	GetBillSubjects(ctx context.Context) ([]string, error)
}

// Operation names used in errors, logs and metrics.
const (
	OpSearchPoliticians  = "search_politicians"
	OpSearchDonors       = "search_donors"
	OpGetPolitician      = "get_politician"
	OpGetDonor           = "get_donor"
	OpGetDonorDonations  = "get_donor_donations"
	OpGetPoliticianVotes = "get_politician_votes"
	OpGetDonationSummary = "get_donation_summary"
	OpGetBillSubjects    = "get_bill_subjects"
)
