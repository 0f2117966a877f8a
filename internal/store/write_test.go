package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFixtures(t *testing.T) {
	f, err := DefaultFixtures()
	require.NoError(t, err)
	assert.Len(t, f.Politicians, 11)
	assert.Len(t, f.Donors, 9)
	assert.NotEmpty(t, f.Donations)
	assert.NotEmpty(t, f.Bills)
	assert.NotEmpty(t, f.Votes)

	require.NotNil(t, f.Donors[0].Industry)
	assert.Equal(t, "Defense Aerospace", *f.Donors[0].Industry)
}

func TestLoadFixtures_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFixtures(strings.NewReader("politicians:\n  - {id: 1, nickname: x}\n"))
	require.Error(t, err)
}

func TestLoadFixtures_Empty(t *testing.T) {
	f, err := LoadFixtures(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Politicians)
}

func TestSeed_CountsInsertedRows(t *testing.T) {
	s := createTestStore(t)
	f, err := DefaultFixtures()
	require.NoError(t, err)

	stats, err := s.Seed(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, SeedStats{
		Politicians: len(f.Politicians),
		Donors:      len(f.Donors),
		Donations:   len(f.Donations),
		Bills:       len(f.Bills),
		Votes:       len(f.Votes),
	}, stats)
}

func TestSeed_Idempotent(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()
	f, err := DefaultFixtures()
	require.NoError(t, err)

	stats, err := s.Seed(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, SeedStats{}, stats)

	n, err := s.count(ctx, "donations")
	require.NoError(t, err)
	assert.Equal(t, len(f.Donations), n)
}

func TestSeed_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	f, err := LoadFixtures(strings.NewReader(`
politicians:
  - {id: 1, first_name: Elizabeth, last_name: Warren}
votes:
  - {id: 1, politician_id: 1, bill_id: 42, vote: Yea}
`))
	require.NoError(t, err)

	_, err = s.Seed(ctx, f)
	require.Error(t, err, "vote references a missing bill")

	n, err := s.count(ctx, "politicians")
	require.NoError(t, err)
	assert.Zero(t, n)
}
