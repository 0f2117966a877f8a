package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
)

const politicianColumns = `id, first_name, last_name, party, state, role, is_active`

const donorColumns = `id, name, donor_type, employer, state`

// SearchPoliticians returns politicians whose full name contains text,
// active first. Queries shorter than two code points return no rows.
func (s *Store) SearchPoliticians(ctx context.Context, text string) ([]model.Politician, error) {
	if model.QueryLength(text) < model.KindPolitician.MinQueryLength() {
		return []model.Politician{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+politicianColumns+`
		FROM politicians
		WHERE (first_name || ' ' || last_name) LIKE ? ESCAPE '\'
		ORDER BY is_active DESC, last_name, first_name, id
	`, containsPattern(text))
	if err != nil {
		return nil, s.fail(gateway.OpSearchPoliticians, err)
	}
	defer rows.Close()

	politicians := []model.Politician{}
	for rows.Next() {
		p, err := scanPolitician(rows)
		if err != nil {
			return nil, s.fail(gateway.OpSearchPoliticians, err)
		}
		politicians = append(politicians, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(gateway.OpSearchPoliticians, err)
	}
	return politicians, nil
}

// SearchDonors returns donors whose name contains text, by name.
// Queries shorter than three code points return no rows.
func (s *Store) SearchDonors(ctx context.Context, text string) ([]model.Donor, error) {
	if model.QueryLength(text) < model.KindDonor.MinQueryLength() {
		return []model.Donor{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+donorColumns+`
		FROM donors
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY name, id
	`, containsPattern(text))
	if err != nil {
		return nil, s.fail(gateway.OpSearchDonors, err)
	}
	defer rows.Close()

	donors := []model.Donor{}
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, s.fail(gateway.OpSearchDonors, err)
		}
		donors = append(donors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(gateway.OpSearchDonors, err)
	}
	return donors, nil
}

// GetPolitician returns one politician or a NOT_FOUND error.
func (s *Store) GetPolitician(ctx context.Context, id int64) (model.Politician, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+politicianColumns+` FROM politicians WHERE id = ?
	`, id)
	p, err := scanPolitician(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Politician{}, gateway.NewNotFoundError(gateway.OpGetPolitician, id)
	}
	if err != nil {
		return model.Politician{}, s.fail(gateway.OpGetPolitician, err)
	}
	return p, nil
}

// GetDonor returns one donor or a NOT_FOUND error.
func (s *Store) GetDonor(ctx context.Context, id int64) (model.Donor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+donorColumns+` FROM donors WHERE id = ?
	`, id)
	d, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Donor{}, gateway.NewNotFoundError(gateway.OpGetDonor, id)
	}
	if err != nil {
		return model.Donor{}, s.fail(gateway.OpGetDonor, err)
	}
	return d, nil
}

// GetDonorDonations returns a donor's donations joined with the recipient,
// newest first. An unknown donor has no donations.
func (s *Store) GetDonorDonations(ctx context.Context, id int64) ([]model.Donation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.amount, t.date, p.first_name, p.last_name, p.party, p.state
		FROM donations t
		JOIN politicians p ON t.politician_id = p.id
		WHERE t.donor_id = ?
		ORDER BY t.date DESC, t.amount DESC, t.id ASC
	`, id)
	if err != nil {
		return nil, s.fail(gateway.OpGetDonorDonations, err)
	}
	defer rows.Close()

	donations := []model.Donation{}
	for rows.Next() {
		var d model.Donation
		if err := rows.Scan(&d.Amount, &d.Date, &d.FirstName, &d.LastName, &d.Party, &d.State); err != nil {
			return nil, s.fail(gateway.OpGetDonorDonations, err)
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(gateway.OpGetDonorDonations, err)
	}
	return donations, nil
}

// GetPoliticianVotes returns one page of a politician's votes.
//
// Types match bill number prefixes case-insensitively and are ORed.
// Subjects match bills carrying any of them.
func (s *Store) GetPoliticianVotes(ctx context.Context, id int64, q model.VoteQuery) (model.VoteResponse, error) {
	q = q.Normalized()

	where := []string{"v.politician_id = ?"}
	args := []any{id}

	if len(q.Types) > 0 {
		conds := make([]string, 0, len(q.Types))
		for _, t := range q.Types {
			conds = append(conds, `b.bill_number LIKE ? ESCAPE '\'`)
			args = append(args, escapeLike(t)+"%")
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}
	if len(q.Subjects) > 0 {
		where = append(where, `EXISTS (
			SELECT 1 FROM bill_subjects s
			WHERE s.bill_id = b.id AND s.subject IN (`+placeholders(len(q.Subjects))+`))`)
		for _, subj := range q.Subjects {
			args = append(args, subj)
		}
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes v JOIN bills b ON v.bill_id = b.id WHERE `+whereSQL,
		args...,
	).Scan(&total)
	if err != nil {
		return model.VoteResponse{}, s.fail(gateway.OpGetPoliticianVotes, err)
	}

	// Sort is one of two constants, never caller text.
	order := "DESC"
	if q.Sort == model.SortAsc {
		order = "ASC"
	}
	offset := (q.Page - 1) * model.VotesPerPage
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.vote, b.id, b.bill_number, b.title, b.date_introduced
		FROM votes v
		JOIN bills b ON v.bill_id = b.id
		WHERE `+whereSQL+`
		ORDER BY b.date_introduced `+order+`, v.id ASC
		LIMIT ? OFFSET ?`,
		append(args, model.VotesPerPage, offset)...,
	)
	if err != nil {
		return model.VoteResponse{}, s.fail(gateway.OpGetPoliticianVotes, err)
	}

	votes := []model.Vote{}
	var billIDs []int64
	for rows.Next() {
		var v model.Vote
		var billID int64
		if err := rows.Scan(&v.VoteID, &v.Vote, &billID, &v.BillNumber, &v.Title, &v.DateIntroduced); err != nil {
			rows.Close()
			return model.VoteResponse{}, s.fail(gateway.OpGetPoliticianVotes, err)
		}
		votes = append(votes, v)
		billIDs = append(billIDs, billID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.VoteResponse{}, s.fail(gateway.OpGetPoliticianVotes, err)
	}

	subjects, err := s.billSubjects(ctx, billIDs)
	if err != nil {
		return model.VoteResponse{}, s.fail(gateway.OpGetPoliticianVotes, err)
	}
	for i := range votes {
		votes[i].Subjects = subjects[billIDs[i]]
		if votes[i].Subjects == nil {
			votes[i].Subjects = []string{}
		}
	}

	return model.VoteResponse{
		Pagination: model.VotePagination{
			CurrentPage: q.Page,
			TotalPages:  (total + model.VotesPerPage - 1) / model.VotesPerPage,
			TotalVotes:  total,
		},
		Votes: votes,
	}, nil
}

// billSubjects loads the subjects of the given bills, alphabetically.
func (s *Store) billSubjects(ctx context.Context, billIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(billIDs))
	if len(billIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(billIDs))
	for i, id := range billIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT bill_id, subject FROM bill_subjects
		WHERE bill_id IN (`+placeholders(len(billIDs))+`)
		ORDER BY bill_id, subject COLLATE BINARY
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query bill subjects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var subject string
		if err := rows.Scan(&id, &subject); err != nil {
			return nil, fmt.Errorf("scan bill subject: %w", err)
		}
		out[id] = append(out[id], subject)
	}
	return out, rows.Err()
}

// GetDonationSummary totals a politician's donations per donor industry,
// largest first. Donors without an industry are left out. A topic limits
// the industries to those tied to it; an unknown topic yields no rows.
func (s *Store) GetDonationSummary(ctx context.Context, id int64, topic string) ([]model.DonationSummary, error) {
	where := "t.politician_id = ? AND d.industry IS NOT NULL"
	args := []any{id}

	if topic != "" {
		industries := model.TopicIndustries(topic)
		if len(industries) == 0 {
			s.logger.Debug("unknown summary topic", "topic", topic)
			return []model.DonationSummary{}, nil
		}
		where += " AND d.industry IN (" + placeholders(len(industries)) + ")"
		for _, ind := range industries {
			args = append(args, ind)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.industry, SUM(t.amount) AS total
		FROM donations t
		JOIN donors d ON t.donor_id = d.id
		WHERE `+where+`
		GROUP BY d.industry
		ORDER BY total DESC, d.industry ASC
	`, args...)
	if err != nil {
		return nil, s.fail(gateway.OpGetDonationSummary, err)
	}
	defer rows.Close()

	summary := []model.DonationSummary{}
	for rows.Next() {
		var row model.DonationSummary
		if err := rows.Scan(&row.Industry, &row.TotalAmount); err != nil {
			return nil, s.fail(gateway.OpGetDonationSummary, err)
		}
		summary = append(summary, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(gateway.OpGetDonationSummary, err)
	}
	return summary, nil
}

// GetBillSubjects returns every distinct bill subject, alphabetically.
func (s *Store) GetBillSubjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT subject FROM bill_subjects
		WHERE subject != ''
		ORDER BY subject COLLATE BINARY
	`)
	if err != nil {
		return nil, s.fail(gateway.OpGetBillSubjects, err)
	}
	defer rows.Close()

	subjects := []string{}
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, s.fail(gateway.OpGetBillSubjects, err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(gateway.OpGetBillSubjects, err)
	}
	return subjects, nil
}

// fail wraps a database error as a gateway failure. Context errors are
// wrapped so callers still see the cancellation.
func (s *Store) fail(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Error("store query failed", "op", op, "error", err)
	return &gateway.Error{Code: model.ErrNetworkFailure, Op: op, Err: err}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPolitician(row scanner) (model.Politician, error) {
	var p model.Politician
	var role sql.NullString
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Party, &p.State, &role, &p.IsActive); err != nil {
		return model.Politician{}, err
	}
	p.Role = fromNullString(role)
	return p, nil
}

func scanDonor(row scanner) (model.Donor, error) {
	var d model.Donor
	var employer, state sql.NullString
	if err := row.Scan(&d.ID, &d.Name, &d.DonorType, &employer, &state); err != nil {
		return model.Donor{}, err
	}
	d.Employer = fromNullString(employer)
	d.State = fromNullString(state)
	return d, nil
}
