package routing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/db"
)

// Store provides persistence for routing rules.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new rule and returns it with its assigned ID.
func (s *Store) Create(ctx context.Context, r Rule) (*Rule, error) {
	if r.Category != nil && !classify.ValidCategory(*r.Category) {
		return nil, fmt.Errorf("unknown category %q", *r.Category)
	}
	if r.Urgency != nil && !r.Urgency.Valid() {
		return nil, fmt.Errorf("unknown urgency %q", *r.Urgency)
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO routing_rules (category, urgency, location, department_id, priority, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullStr(r.Category), nullUrgency(r.Urgency), nullStr(r.Location),
		r.DepartmentID, r.Priority, boolToInt(r.Active),
		now.Format(db.TimeFormat), now.Format(db.TimeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting routing rule: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading rule id: %w", err)
	}
	return &r, nil
}

const ruleColumns = `id, category, urgency, location, department_id, priority, active, created_at, updated_at`

// GetByID retrieves a rule. Returns (nil, nil) if absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Rule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM routing_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// List returns all rules ordered by category then priority, the way an
// administrator reviews them.
func (s *Store) List(ctx context.Context) ([]Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM routing_rules ORDER BY category ASC, priority DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing routing rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// Update replaces the mutable fields of a rule. Returns (nil, nil) if
// the rule does not exist.
func (s *Store) Update(ctx context.Context, id int64, r Rule) (*Rule, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if r.Category != nil && !classify.ValidCategory(*r.Category) {
		return nil, fmt.Errorf("unknown category %q", *r.Category)
	}
	if r.Urgency != nil && !r.Urgency.Valid() {
		return nil, fmt.Errorf("unknown urgency %q", *r.Urgency)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE routing_rules SET category = ?, urgency = ?, location = ?, department_id = ?, priority = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		nullStr(r.Category), nullUrgency(r.Urgency), nullStr(r.Location),
		r.DepartmentID, r.Priority, boolToInt(r.Active),
		now.Format(db.TimeFormat), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating routing rule: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a rule. Matching only ever reads rules, so deletion
// never rewrites history: complaints keep the department they were
// assigned.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM routing_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting routing rule: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("routing rule %d not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(r rowScanner) (*Rule, error) {
	var rule Rule
	var category, urgency, location sql.NullString
	var active int
	var createdAt, updatedAt string

	err := r.Scan(&rule.ID, &category, &urgency, &location, &rule.DepartmentID,
		&rule.Priority, &active, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning routing rule: %w", err)
	}
	if category.Valid {
		rule.Category = &category.String
	}
	if urgency.Valid {
		u := classify.Urgency(urgency.String)
		rule.Urgency = &u
	}
	if location.Valid {
		rule.Location = &location.String
	}
	rule.Active = active != 0
	rule.CreatedAt, _ = time.Parse(db.TimeFormat, createdAt)
	rule.UpdatedAt, _ = time.Parse(db.TimeFormat, updatedAt)
	return &rule, nil
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullUrgency(u *classify.Urgency) any {
	if u == nil {
		return nil
	}
	return string(*u)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
