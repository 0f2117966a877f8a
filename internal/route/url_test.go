package route

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/papertrail/internal/model"
)

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		name  string
		kind  model.Kind
		query string
		want  string
	}{
		{"empty query", model.KindPolitician, "", "/politician"},
		{"blank query", model.KindDonor, "   ", "/donor"},
		{"simple", model.KindPolitician, "warren", "/politician?search=warren"},
		{"space encoded", model.KindPolitician, "elizabeth warren", "/politician?search=elizabeth%20warren"},
		{"reserved chars", model.KindDonor, "AT&T", "/donor?search=AT%26T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSearchURL(tt.kind, tt.query))
		})
	}
}

func TestEntityURL(t *testing.T) {
	assert.Equal(t, "/politician/42", EntityURL(model.KindPolitician, 42))
	assert.Equal(t, "/donor/7", EntityURL(model.KindDonor, 7))
}

func TestParseComparisonIDs(t *testing.T) {
	tests := []struct {
		name  string
		param string
		want  []int64
	}{
		{"empty", "", nil},
		{"blank", "  ", nil},
		{"two ids", "5,9", []int64{5, 9}},
		{"whitespace trimmed", " 5 , 9 ", []int64{5, 9}},
		{"empty tokens dropped", "5,,9,", []int64{5, 9}},
		{"malformed dropped", "5,abc,9", []int64{5, 9}},
		{"all malformed", "x,y", nil},
		{"order kept", "9,5", []int64{9, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseComparisonIDs(tt.param))
		})
	}
}

func TestComparisonURLRoundTrip(t *testing.T) {
	u := BuildComparisonURL([]int64{5, 9})
	assert.Equal(t, "/politician/compare?ids=5,9", u)

	loc := MustLocation(u)
	assert.Equal(t, []int64{5, 9}, ParseComparisonIDs(loc.Query().Get(ParamIDs)))
}
