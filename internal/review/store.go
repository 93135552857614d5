package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/db"
)

// Store persists manual review queue entries.
type Store struct {
	db *db.DB
}

// NewStore creates a review store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateTx inserts a new pending entry. It takes a Querier because
// entries are always created inside the complaint intake transaction.
func (s *Store) CreateTx(ctx context.Context, q db.Querier, e *Entry) error {
	e.ID = uuid.New().String()
	e.OverrideStatus = OutcomePending
	e.CreatedAt = time.Now().UTC()

	var origDept any
	if e.OriginalDepartmentID != "" {
		origDept = e.OriginalDepartmentID
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO manual_review_queue
			(id, complaint_id, flagged_reason, original_category, original_urgency,
			 original_location, original_department_id, original_confidence,
			 override_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ComplaintID, e.FlaggedReason, e.OriginalCategory, string(e.OriginalUrgency),
		e.OriginalLocation, origDept, e.OriginalConfidence,
		string(e.OverrideStatus), e.CreatedAt.Format(db.TimeFormat))
	if err != nil {
		return fmt.Errorf("inserting review entry: %w", err)
	}
	return nil
}

const entryColumns = `id, complaint_id, flagged_reason, original_category, original_urgency,
	original_location, original_department_id, original_confidence,
	override_status, reviewed_by, override_notes, created_at, reviewed_at`

// Get returns an entry by ID, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	return s.get(ctx, s.db, `id = ?`, id)
}

// GetByComplaint returns the entry for a complaint, or nil if the
// complaint was never flagged for review.
func (s *Store) GetByComplaint(ctx context.Context, complaintID string) (*Entry, error) {
	return s.get(ctx, s.db, `complaint_id = ?`, complaintID)
}

// GetByComplaintTx is GetByComplaint inside a transaction.
func (s *Store) GetByComplaintTx(ctx context.Context, q db.Querier, complaintID string) (*Entry, error) {
	return s.get(ctx, q, `complaint_id = ?`, complaintID)
}

func (s *Store) get(ctx context.Context, q db.Querier, where string, arg any) (*Entry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM manual_review_queue WHERE `+where, arg)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting review entry: %w", err)
	}
	return e, nil
}

// List returns entries filtered by override status, newest first. An
// empty status returns everything.
func (s *Store) List(ctx context.Context, status Outcome) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM manual_review_queue`
	var args []any
	if status != "" {
		query += ` WHERE override_status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing review entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntryRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// PendingCount returns the size of the open review queue.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM manual_review_queue WHERE override_status = ?`,
		string(OutcomePending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting pending reviews: %w", err)
	}
	return n, nil
}

// MarkReviewedTx closes a pending entry with the reviewer's verdict.
// It runs inside the review transaction and refuses entries that have
// already been reviewed.
func (s *Store) MarkReviewedTx(ctx context.Context, q db.Querier, id string, outcome Outcome, reviewerID, notes string, reviewedAt time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE manual_review_queue
		SET override_status = ?, reviewed_by = ?, override_notes = ?, reviewed_at = ?
		WHERE id = ? AND override_status = ?`,
		string(outcome), reviewerID, notes, reviewedAt.UTC().Format(db.TimeFormat),
		id, string(OutcomePending))
	if err != nil {
		return fmt.Errorf("marking review entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking review entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("review entry %s is not pending", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row *sql.Row) (*Entry, error) {
	return scanRow(row)
}

func scanEntryRows(rows *sql.Rows) (*Entry, error) {
	return scanRow(rows)
}

func scanRow(r rowScanner) (*Entry, error) {
	var e Entry
	var urgency, createdAt string
	var origDept, reviewedBy, reviewedAt sql.NullString
	if err := r.Scan(&e.ID, &e.ComplaintID, &e.FlaggedReason, &e.OriginalCategory, &urgency,
		&e.OriginalLocation, &origDept, &e.OriginalConfidence,
		&e.OverrideStatus, &reviewedBy, &e.OverrideNotes, &createdAt, &reviewedAt); err != nil {
		return nil, err
	}
	e.OriginalUrgency = classify.Urgency(urgency)
	e.OriginalDepartmentID = origDept.String
	e.ReviewedBy = reviewedBy.String
	e.CreatedAt, _ = time.Parse(db.TimeFormat, createdAt)
	if reviewedAt.Valid {
		t, err := time.Parse(db.TimeFormat, reviewedAt.String)
		if err == nil {
			e.ReviewedAt = &t
		}
	}
	return &e, nil
}
