package store

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/papertrail/internal/model"
)

//go:embed seed.yaml
var defaultSeed []byte

// Fixtures is a data set in the YAML shape accepted by Seed.
type Fixtures struct {
	Politicians []model.Politician `yaml:"politicians"`
	Donors      []DonorFixture     `yaml:"donors"`
	Donations   []DonationFixture  `yaml:"donations"`
	Bills       []BillFixture      `yaml:"bills"`
	Votes       []VoteFixture      `yaml:"votes"`
}

// DonorFixture is a donor plus the industry used by donation summaries.
type DonorFixture struct {
	model.Donor `yaml:",inline"`
	Industry    *string `yaml:"industry"`
}

// DonationFixture is one contribution.
type DonationFixture struct {
	DonorID      int64   `yaml:"donor_id"`
	PoliticianID int64   `yaml:"politician_id"`
	Amount       float64 `yaml:"amount"`
	Date         string  `yaml:"date"`
}

// BillFixture is a bill with its subjects.
type BillFixture struct {
	ID             int64    `yaml:"id"`
	BillNumber     string   `yaml:"bill_number"`
	Title          string   `yaml:"title"`
	DateIntroduced string   `yaml:"date_introduced"`
	Subjects       []string `yaml:"subjects"`
}

// VoteFixture is one recorded vote.
type VoteFixture struct {
	ID           int64  `yaml:"id"`
	PoliticianID int64  `yaml:"politician_id"`
	BillID       int64  `yaml:"bill_id"`
	Vote         string `yaml:"vote"`
}

// LoadFixtures decodes YAML fixtures. Unknown fields are rejected.
func LoadFixtures(r io.Reader) (Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return Fixtures{}, nil
		}
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return f, nil
}

// DefaultFixtures returns the built-in demo data set.
func DefaultFixtures() (Fixtures, error) {
	return LoadFixtures(bytes.NewReader(defaultSeed))
}

// SeedStats counts the rows a Seed call inserted.
type SeedStats struct {
	Politicians int `json:"politicians"`
	Donors      int `json:"donors"`
	Donations   int `json:"donations"`
	Bills       int `json:"bills"`
	Votes       int `json:"votes"`
}

// Seed inserts fixtures in one transaction.
// Rows with ids already present are skipped (ON CONFLICT(id) DO NOTHING),
// so seeding the same fixtures twice is a no-op for everything but
// donations, which carry no id and are only inserted into an empty table.
func (s *Store) Seed(ctx context.Context, f Fixtures) (SeedStats, error) {
	var stats SeedStats

	existing, err := s.count(ctx, "donations")
	if err != nil {
		return stats, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range f.Politicians {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO politicians (id, first_name, last_name, party, state, role, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, p.ID, p.FirstName, p.LastName, p.Party, p.State, toNullString(p.Role), p.IsActive)
		if err != nil {
			return stats, fmt.Errorf("seed politician %d: %w", p.ID, err)
		}
		stats.Politicians += affected(res)
	}

	for _, d := range f.Donors {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO donors (id, name, donor_type, employer, state, industry)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, d.ID, d.Name, d.DonorType, toNullString(d.Employer), toNullString(d.State), toNullString(d.Industry))
		if err != nil {
			return stats, fmt.Errorf("seed donor %d: %w", d.ID, err)
		}
		stats.Donors += affected(res)
	}

	if existing == 0 {
		for i, d := range f.Donations {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO donations (donor_id, politician_id, amount, date)
				VALUES (?, ?, ?, ?)
			`, d.DonorID, d.PoliticianID, d.Amount, d.Date)
			if err != nil {
				return stats, fmt.Errorf("seed donation %d: %w", i, err)
			}
			stats.Donations += affected(res)
		}
	} else if len(f.Donations) > 0 {
		s.logger.Info("donations already seeded, skipping", "existing", existing)
	}

	for _, b := range f.Bills {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO bills (id, bill_number, title, date_introduced)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, b.ID, b.BillNumber, b.Title, b.DateIntroduced)
		if err != nil {
			return stats, fmt.Errorf("seed bill %d: %w", b.ID, err)
		}
		stats.Bills += affected(res)

		for _, subj := range b.Subjects {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO bill_subjects (bill_id, subject) VALUES (?, ?)
				ON CONFLICT(bill_id, subject) DO NOTHING
			`, b.ID, subj); err != nil {
				return stats, fmt.Errorf("seed bill %d subject %q: %w", b.ID, subj, err)
			}
		}
	}

	for _, v := range f.Votes {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO votes (id, politician_id, bill_id, vote)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, v.ID, v.PoliticianID, v.BillID, v.Vote)
		if err != nil {
			return stats, fmt.Errorf("seed vote %d: %w", v.ID, err)
		}
		stats.Votes += affected(res)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("seed: commit: %w", err)
	}
	s.logger.Info("seeded store",
		"politicians", stats.Politicians,
		"donors", stats.Donors,
		"donations", stats.Donations,
		"bills", stats.Bills,
		"votes", stats.Votes,
	)
	return stats, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func affected(res rowsAffected) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}
