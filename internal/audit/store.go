package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/grievd/internal/db"
)

// Store provides append-only access to the audit ledger. Records are
// never updated or deleted.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log appends a record using the given querier, which may be a
// transaction. The lifecycle manager and the escalation engine call
// this inside their atomic units so the audit write commits or rolls
// back with the state change it describes.
func (s *Store) Log(ctx context.Context, q db.Querier, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var oldValue, newValue, actorID sql.NullString
	if rec.OldValue != "" {
		oldValue = sql.NullString{String: rec.OldValue, Valid: true}
	}
	if rec.NewValue != "" {
		newValue = sql.NullString{String: rec.NewValue, Valid: true}
	}
	if rec.ActorID != "" {
		actorID = sql.NullString{String: rec.ActorID, Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_logs (id, entity_type, entity_id, action, old_value, new_value, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		string(rec.EntityType),
		rec.EntityID,
		string(rec.Action),
		oldValue,
		newValue,
		actorID,
		rec.CreatedAt.UTC().Format(db.TimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

// Snapshot marshals a value into the JSON form stored in old_value /
// new_value columns. Marshal failures are swallowed into an empty
// string; an audit snapshot must never abort the transaction it rides.
func Snapshot(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// QueryFilter controls which audit records are returned by Query.
type QueryFilter struct {
	EntityType EntityType
	EntityID   string
	Action     Action
	ActorID    string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// Query returns audit records matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.EntityType != "" {
		clauses = append(clauses, "entity_type = ?")
		args = append(args, string(filter.EntityType))
	}
	if filter.EntityID != "" {
		clauses = append(clauses, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(db.TimeFormat))
	}
	if filter.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.Until.UTC().Format(db.TimeFormat))
	}

	query := `SELECT id, entity_type, entity_id, action, old_value, new_value, actor_id, created_at FROM audit_logs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var oldValue, newValue, actorID sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.EntityType, &rec.EntityID, &rec.Action,
			&oldValue, &newValue, &actorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		rec.OldValue = oldValue.String
		rec.NewValue = newValue.String
		rec.ActorID = actorID.String
		rec.CreatedAt, _ = time.Parse(db.TimeFormat, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByEntity returns how many records exist for one entity.
func (s *Store) CountByEntity(ctx context.Context, entityType EntityType, entityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE entity_type = ? AND entity_id = ?`,
		string(entityType), entityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting audit records: %w", err)
	}
	return count, nil
}
