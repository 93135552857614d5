package complaint

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/db"
)

// Store persists complaints. Mutations that belong to a multi-table
// unit take a Querier so they ride the enclosing transaction.
type Store struct {
	db *db.DB
}

// NewStore creates a complaint store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// InsertTx writes a new complaint inside the intake transaction. The
// caller has already filled in ID, timestamps, and routing fields.
func (s *Store) InsertTx(ctx context.Context, q db.Querier, c *Complaint) error {
	var submitter any
	if c.SubmitterID != "" {
		submitter = c.SubmitterID
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO complaints
			(id, submitter_id, text, category, urgency, location, intent, confidence,
			 department_id, status, assigned_by, explanation, sla_deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, submitter, c.Text, c.Category, string(c.Urgency), c.Location, c.Intent, c.Confidence,
		c.DepartmentID, string(c.Status), string(c.AssignedBy), c.Explanation,
		c.SLADeadline.UTC().Format(db.TimeFormat),
		c.CreatedAt.UTC().Format(db.TimeFormat), c.UpdatedAt.UTC().Format(db.TimeFormat))
	if err != nil {
		return fmt.Errorf("inserting complaint: %w", err)
	}
	return nil
}

const complaintColumns = `id, submitter_id, text, category, urgency, location, intent, confidence,
	department_id, status, assigned_by, explanation, sla_deadline, resolved_at, created_at, updated_at`

// Get returns a complaint by ID, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Complaint, error) {
	return s.get(ctx, s.db, id)
}

// GetTx re-reads a complaint inside a transaction. Escalation and
// review use it to detect concurrent state changes before writing.
func (s *Store) GetTx(ctx context.Context, q db.Querier, id string) (*Complaint, error) {
	return s.get(ctx, q, id)
}

func (s *Store) get(ctx context.Context, q db.Querier, id string) (*Complaint, error) {
	row := q.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, id)
	c, err := scanComplaint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting complaint: %w", err)
	}
	return c, nil
}

// List returns complaints matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Complaint, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.DepartmentID != "" {
		clauses = append(clauses, "department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing complaints: %w", err)
	}
	defer rows.Close()

	var complaints []Complaint
	for rows.Next() {
		c, err := scanComplaintRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning complaint: %w", err)
		}
		complaints = append(complaints, *c)
	}
	return complaints, rows.Err()
}

// UpdateStatusTx changes a complaint's status inside a transaction.
// resolved_at is set when entering resolved and cleared otherwise so
// the two stay consistent.
func (s *Store) UpdateStatusTx(ctx context.Context, q db.Querier, id string, status Status, now time.Time) error {
	var resolvedAt any
	if status == StatusResolved {
		resolvedAt = now.UTC().Format(db.TimeFormat)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE complaints SET status = ?, resolved_at = ?, updated_at = ? WHERE id = ?`,
		string(status), resolvedAt, now.UTC().Format(db.TimeFormat), id)
	if err != nil {
		return fmt.Errorf("updating complaint status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating complaint status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("complaint %s not found", id)
	}
	return nil
}

// ReassignTx rewrites a complaint's routing outcome. Used by the
// review override path and by escalation.
func (s *Store) ReassignTx(ctx context.Context, q db.Querier, id string, category string, urgency classify.Urgency, departmentID string, status Status, assignedBy AssignedBy, deadline time.Time, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE complaints
		SET category = ?, urgency = ?, department_id = ?, status = ?, assigned_by = ?,
		    sla_deadline = ?, updated_at = ?
		WHERE id = ?`,
		category, string(urgency), departmentID, string(status), string(assignedBy),
		deadline.UTC().Format(db.TimeFormat), now.UTC().Format(db.TimeFormat), id)
	if err != nil {
		return fmt.Errorf("reassigning complaint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reassigning complaint: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("complaint %s not found", id)
	}
	return nil
}

// SetExplanation attaches the generated routing explanation. It runs
// after the intake transaction commits; a failure here never unwinds
// the complaint.
func (s *Store) SetExplanation(ctx context.Context, id, explanation string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE complaints SET explanation = ? WHERE id = ?`, explanation, id)
	if err != nil {
		return fmt.Errorf("setting explanation: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row *sql.Row) (*Complaint, error) {
	return scanRow(row)
}

func scanComplaintRows(rows *sql.Rows) (*Complaint, error) {
	return scanRow(rows)
}

func scanRow(r rowScanner) (*Complaint, error) {
	var c Complaint
	var submitter, resolvedAt sql.NullString
	var urgency, status, assignedBy, deadline, createdAt, updatedAt string
	if err := r.Scan(&c.ID, &submitter, &c.Text, &c.Category, &urgency, &c.Location, &c.Intent, &c.Confidence,
		&c.DepartmentID, &status, &assignedBy, &c.Explanation, &deadline, &resolvedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.SubmitterID = submitter.String
	c.Urgency = classify.Urgency(urgency)
	c.Status = Status(status)
	c.AssignedBy = AssignedBy(assignedBy)
	c.SLADeadline, _ = time.Parse(db.TimeFormat, deadline)
	c.CreatedAt, _ = time.Parse(db.TimeFormat, createdAt)
	c.UpdatedAt, _ = time.Parse(db.TimeFormat, updatedAt)
	if resolvedAt.Valid {
		t, err := time.Parse(db.TimeFormat, resolvedAt.String)
		if err == nil {
			c.ResolvedAt = &t
		}
	}
	return &c, nil
}
