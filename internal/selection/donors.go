package selection

import (
	"context"

	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
)

// DonorState is a copy of the donor page's selection state. Dependent is
// the donation history.
type DonorState = State[model.Donor, []model.Donation]

// Donors is the donor state machine. Its dependent data is the donation
// history of the selected donor.
type Donors struct {
	*Machine[model.Donor, []model.Donation]
}

// NewDonors creates the donor machine over gw.
func NewDonors(gw gateway.Gateway, p engine.Poster, opts ...Option) *Donors {
	load := func(d model.Donor) func(context.Context) ([]model.Donation, error) {
		return func(ctx context.Context) ([]model.Donation, error) {
			return gw.GetDonorDonations(ctx, d.ID)
		}
	}
	return &Donors{Machine: NewMachine(model.KindDonor, p, gw.SearchDonors, load, opts...)}
}
