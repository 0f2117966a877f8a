package bus

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/papertrail/internal/model"
)

func quietBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBus_DeliversByKind(t *testing.T) {
	b := quietBus()

	var politicians, donors []int64
	b.Subscribe(model.KindPolitician, func(e EntitySelected) {
		require.NotNil(t, e.Politician)
		politicians = append(politicians, e.Politician.ID)
	})
	b.Subscribe(model.KindDonor, func(e EntitySelected) {
		require.NotNil(t, e.Donor)
		donors = append(donors, e.Donor.ID)
	})

	assert.Equal(t, 1, b.Publish(PoliticianSelected(model.Politician{ID: 4})))
	assert.Equal(t, 1, b.Publish(DonorSelected(model.Donor{ID: 9})))

	assert.Equal(t, []int64{4}, politicians)
	assert.Equal(t, []int64{9}, donors)
}

func TestBus_NoSubscriberIsSilentNoOp(t *testing.T) {
	b := quietBus()
	assert.Equal(t, 0, b.Publish(DonorSelected(model.Donor{ID: 1})))
}

func TestBus_Unsubscribe(t *testing.T) {
	b := quietBus()

	calls := 0
	stop := b.Subscribe(model.KindPolitician, func(EntitySelected) { calls++ })
	b.Publish(PoliticianSelected(model.Politician{ID: 1}))
	stop()
	stop()
	b.Publish(PoliticianSelected(model.Politician{ID: 2}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Subscribers(model.KindPolitician))
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	b := quietBus()

	var got []string
	b.Subscribe(model.KindDonor, func(EntitySelected) { panic("boom") })
	b.Subscribe(model.KindDonor, func(EntitySelected) { got = append(got, "second") })

	assert.Equal(t, 1, b.Publish(DonorSelected(model.Donor{ID: 3})))
	assert.Equal(t, []string{"second"}, got)
}

func TestEntitySelected_Ref(t *testing.T) {
	assert.Equal(t, model.EntityRef{ID: 5, Kind: model.KindPolitician},
		PoliticianSelected(model.Politician{ID: 5}).Ref())
	assert.Equal(t, model.EntityRef{ID: 6, Kind: model.KindDonor},
		DonorSelected(model.Donor{ID: 6}).Ref())
}
