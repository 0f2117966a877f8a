package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"politician", KindPolitician, false},
		{" Donor ", KindDonor, false},
		{"bill", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKind_MinQueryLength(t *testing.T) {
	assert.Equal(t, 2, KindPolitician.MinQueryLength())
	assert.Equal(t, 3, KindDonor.MinQueryLength())
}

func TestQueryLength_CountsComposedCodePoints(t *testing.T) {
	// "e" + combining acute accent normalizes to a single code point.
	assert.Equal(t, 1, QueryLength("e\u0301"))
	assert.Equal(t, 2, QueryLength("Je\u0301"))
	assert.Equal(t, 6, QueryLength("Warren"))
	assert.Equal(t, 0, QueryLength(""))
}

func TestRefOf(t *testing.T) {
	assert.Equal(t, EntityRef{ID: 7, Kind: KindPolitician}, RefOf(Politician{ID: 7}))
	assert.Equal(t, EntityRef{ID: 9, Kind: KindDonor}, RefOf(Donor{ID: 9}))
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("Politician:42")
	require.NoError(t, err)
	assert.Equal(t, EntityRef{ID: 42, Kind: KindPolitician}, ref)

	for _, bad := range []string{"42", "pac:1", "donor:x"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestVoteQuery_Normalized(t *testing.T) {
	q := VoteQuery{}.Normalized()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, SortDesc, q.Sort)

	q = VoteQuery{Page: 3, Sort: SortAsc}.Normalized()
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, SortAsc, q.Sort)
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortAsc, ParseSortOrder("asc"))
	assert.Equal(t, SortAsc, ParseSortOrder("ASC"))
	assert.Equal(t, SortDesc, ParseSortOrder("sideways"))
	assert.Equal(t, SortDesc, ParseSortOrder(""))
}

func TestTopics(t *testing.T) {
	topics := Topics()
	require.Len(t, topics, 9)
	assert.Equal(t, "Defense", topics[0])
	assert.Equal(t, []string{"Defense Aerospace"}, TopicIndustries("Defense"))
	assert.Nil(t, TopicIndustries("Agriculture"))

	got := TopicIndustries("Energy")
	got[0] = "changed"
	assert.Equal(t, "Oil & Gas", TopicIndustries("Energy")[0], "callers get a copy")
}
