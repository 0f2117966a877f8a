package model

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Kind distinguishes the two searchable entity types.
type Kind string

const (
	KindPolitician Kind = "politician"
	KindDonor      Kind = "donor"
)

// ParseKind converts a path segment or flag value into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPolitician:
		return KindPolitician, nil
	case KindDonor:
		return KindDonor, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q: must be politician or donor", s)
	}
}

// MinQueryLength returns the shortest query that may be sent to the search
// endpoint for this kind.
func (k Kind) MinQueryLength() int {
	if k == KindDonor {
		return 3
	}
	return 2
}

// Entity is implemented by every record that can be selected in a page.
type Entity interface {
	EntityID() int64
	EntityKind() Kind
}

// EntityRef identifies an entity without carrying its payload.
type EntityRef struct {
	ID   int64 `json:"id"`
	Kind Kind  `json:"kind"`
}

// RefOf returns the reference of an entity.
func RefOf(e Entity) EntityRef {
	return EntityRef{ID: e.EntityID(), Kind: e.EntityKind()}
}

// ParseRef reads "politician:1" or "donor:101".
func ParseRef(s string) (EntityRef, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return EntityRef{}, fmt.Errorf("%q is not kind:id", s)
	}
	k, err := ParseKind(kind)
	if err != nil {
		return EntityRef{}, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return EntityRef{}, fmt.Errorf("id %q: %w", id, err)
	}
	return EntityRef{ID: n, Kind: k}, nil
}

// QueryLength counts the code points of the NFC form of text. Minimum length
// gating uses this count so that composed and decomposed input agree.
func QueryLength(text string) int {
	return utf8.RuneCountInString(norm.NFC.String(text))
}

// Politician is a legislator record.
type Politician struct {
	ID        int64   `json:"politicianid" yaml:"id"`
	FirstName string  `json:"firstname" yaml:"first_name"`
	LastName  string  `json:"lastname" yaml:"last_name"`
	Party     string  `json:"party" yaml:"party"`
	State     string  `json:"state" yaml:"state"`
	Role      *string `json:"role" yaml:"role"`
	IsActive  bool    `json:"isactive" yaml:"is_active"`
}

func (p Politician) EntityID() int64  { return p.ID }
func (p Politician) EntityKind() Kind { return KindPolitician }

// FullName joins first and last name.
func (p Politician) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Donor is a campaign contributor (individual or PAC).
type Donor struct {
	ID        int64   `json:"donorid" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	DonorType string  `json:"donortype" yaml:"donor_type"`
	Employer  *string `json:"employer" yaml:"employer"`
	State     *string `json:"state" yaml:"state"`
}

func (d Donor) EntityID() int64  { return d.ID }
func (d Donor) EntityKind() Kind { return KindDonor }

// Donation is one contribution from a donor, joined with its recipient.
type Donation struct {
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	FirstName string  `json:"firstname"`
	LastName  string  `json:"lastname"`
	Party     string  `json:"party"`
	State     string  `json:"state"`
}

// DonationSummary is the total received by a politician from one industry.
type DonationSummary struct {
	Industry    string  `json:"industry"`
	TotalAmount float64 `json:"totalamount"`
}

// Vote is a politician's recorded position on a bill.
type Vote struct {
	VoteID         int64    `json:"VoteID"`
	Vote           string   `json:"Vote"`
	BillNumber     string   `json:"BillNumber"`
	Title          string   `json:"Title"`
	DateIntroduced string   `json:"DateIntroduced"`
	Subjects       []string `json:"subjects"`
}

// VotePagination describes the page of votes returned.
type VotePagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalVotes  int `json:"totalVotes"`
}

// VoteResponse is one page of a politician's vote record.
type VoteResponse struct {
	Pagination VotePagination `json:"pagination"`
	Votes      []Vote         `json:"votes"`
}
