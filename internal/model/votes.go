package model

import "strings"

// SortOrder orders votes by the bill's introduction date.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ParseSortOrder is lenient: anything other than asc (any case) is DESC,
// matching the data service.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return SortAsc
	}
	return SortDesc
}

// VotesPerPage is the fixed page size of the votes endpoint.
const VotesPerPage = 10

// VoteQuery holds pagination, sorting and filters for a vote record request.
// Types are bill number prefixes such as "hr" or "s".
type VoteQuery struct {
	Page     int       `json:"page"`
	Sort     SortOrder `json:"sort"`
	Types    []string  `json:"type,omitempty"`
	Subjects []string  `json:"subject,omitempty"`
}

// DefaultVoteQuery is the first page, newest bills first, unfiltered.
func DefaultVoteQuery() VoteQuery {
	return VoteQuery{Page: 1, Sort: SortDesc}
}

// Normalized fills zero values with defaults.
func (q VoteQuery) Normalized() VoteQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Sort != SortAsc {
		q.Sort = SortDesc
	}
	return q
}
