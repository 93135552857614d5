package escalation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/grievd/internal/db"
)

// Store persists escalation records.
type Store struct {
	db *db.DB
}

// NewStore creates an escalation store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// InsertTx appends an escalation record inside the escalation
// transaction.
func (s *Store) InsertTx(ctx context.Context, q db.Querier, e *Escalation) error {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()

	var from, to any
	if e.EscalatedFrom != "" {
		from = e.EscalatedFrom
	}
	if e.EscalatedTo != "" {
		to = e.EscalatedTo
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO escalations (id, complaint_id, reason, escalated_from, escalated_to, justification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ComplaintID, e.Reason, from, to, e.Justification,
		e.CreatedAt.Format(db.TimeFormat))
	if err != nil {
		return fmt.Errorf("inserting escalation: %w", err)
	}
	return nil
}

const escalationColumns = `id, complaint_id, reason, escalated_from, escalated_to, justification, created_at`

// ListByComplaint returns a complaint's escalation history, newest
// first.
func (s *Store) ListByComplaint(ctx context.Context, complaintID string) ([]Escalation, error) {
	return s.list(ctx, `SELECT `+escalationColumns+` FROM escalations WHERE complaint_id = ? ORDER BY created_at DESC`, complaintID)
}

// List returns recent escalations, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Escalation, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(ctx, `SELECT `+escalationColumns+` FROM escalations ORDER BY created_at DESC LIMIT ?`, limit)
}

// Count returns the total number of escalation records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM escalations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting escalations: %w", err)
	}
	return n, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Escalation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing escalations: %w", err)
	}
	defer rows.Close()

	var escalations []Escalation
	for rows.Next() {
		var e Escalation
		var from, to sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ComplaintID, &e.Reason, &from, &to, &e.Justification, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning escalation: %w", err)
		}
		e.EscalatedFrom = from.String
		e.EscalatedTo = to.String
		e.CreatedAt, _ = time.Parse(db.TimeFormat, createdAt)
		escalations = append(escalations, e)
	}
	return escalations, rows.Err()
}
