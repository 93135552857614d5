package sla

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/civicgrid/grievd/internal/db"
)

// Statistics aggregates SLA health over the complaint store.
type Statistics struct {
	Open              int     `json:"open"`
	Escalated         int     `json:"escalated"`
	Breached          int     `json:"breached"`
	Approaching       int     `json:"approaching"`
	Resolved          int     `json:"resolved"`
	AvgResolutionDays float64 `json:"avg_resolution_days"`
}

// BreachedComplaint is a row from the breach listing: a complaint past
// its deadline and still open.
type BreachedComplaint struct {
	ComplaintID    string    `json:"complaint_id"`
	DepartmentID   string    `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	Status         string    `json:"status"`
	Urgency        string    `json:"urgency"`
	SLADeadline    time.Time `json:"sla_deadline"`
	DaysOverdue    float64   `json:"days_overdue"`
	AgeDays        float64   `json:"age_days"`
}

// Store provides SLA read projections. It only ever reads.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// openStatuses are the statuses a breach scan considers. Resolved and
// closed are terminal for SLA purposes; escalated complaints already
// had their breach handled.
const openStatuses = `('resolved', 'closed', 'escalated')`

// Statistics computes aggregate SLA counters, optionally restricted to
// one department. approachingWithin bounds the "approaching deadline"
// window.
func (s *Store) Statistics(ctx context.Context, departmentID string, now time.Time, approachingWithin time.Duration) (*Statistics, error) {
	nowStr := now.UTC().Format(db.TimeFormat)
	horizonStr := now.Add(approachingWithin).UTC().Format(db.TimeFormat)

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status NOT IN ('resolved', 'closed')) AS open,
			COUNT(*) FILTER (WHERE status = 'escalated') AS escalated,
			COUNT(*) FILTER (WHERE status NOT IN ` + openStatuses + ` AND sla_deadline < ?) AS breached,
			COUNT(*) FILTER (WHERE status NOT IN ` + openStatuses + ` AND sla_deadline >= ? AND sla_deadline < ?) AS approaching,
			COUNT(*) FILTER (WHERE status IN ('resolved', 'closed')) AS resolved,
			COALESCE(AVG(CASE WHEN resolved_at IS NOT NULL
				THEN julianday(resolved_at) - julianday(created_at) END), 0) AS avg_resolution_days
		FROM complaints`

	args := []any{nowStr, nowStr, horizonStr}
	if departmentID != "" {
		query += ` WHERE department_id = ?`
		args = append(args, departmentID)
	}

	var stats Statistics
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Open, &stats.Escalated, &stats.Breached,
		&stats.Approaching, &stats.Resolved, &stats.AvgResolutionDays,
	)
	if err != nil {
		return nil, fmt.Errorf("computing sla statistics: %w", err)
	}
	return &stats, nil
}

// Breached lists complaints past their deadline and still open, oldest
// deadline first. This is the selection predicate the breach scanner
// uses, exposed for dashboards.
func (s *Store) Breached(ctx context.Context, now time.Time) ([]BreachedComplaint, error) {
	return s.listWindow(ctx, `
		SELECT c.id, c.department_id, d.name, c.status, c.urgency, c.sla_deadline,
		       julianday(?) - julianday(c.sla_deadline) AS days_overdue,
		       julianday(?) - julianday(c.created_at) AS age_days
		FROM complaints c
		JOIN departments d ON d.id = c.department_id
		WHERE c.status NOT IN `+openStatuses+` AND c.sla_deadline < ?
		ORDER BY c.sla_deadline ASC`,
		now.UTC().Format(db.TimeFormat), now.UTC().Format(db.TimeFormat), now.UTC().Format(db.TimeFormat))
}

// Approaching lists open complaints whose deadline falls inside the
// given window from now.
func (s *Store) Approaching(ctx context.Context, now time.Time, within time.Duration) ([]BreachedComplaint, error) {
	nowStr := now.UTC().Format(db.TimeFormat)
	horizonStr := now.Add(within).UTC().Format(db.TimeFormat)
	return s.listWindow(ctx, `
		SELECT c.id, c.department_id, d.name, c.status, c.urgency, c.sla_deadline,
		       julianday(?) - julianday(c.sla_deadline) AS days_overdue,
		       julianday(?) - julianday(c.created_at) AS age_days
		FROM complaints c
		JOIN departments d ON d.id = c.department_id
		WHERE c.status NOT IN `+openStatuses+` AND c.sla_deadline >= ? AND c.sla_deadline < ?
		ORDER BY c.sla_deadline ASC`,
		nowStr, nowStr, nowStr, horizonStr)
}

func (s *Store) listWindow(ctx context.Context, query string, args ...any) ([]BreachedComplaint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing complaints by deadline: %w", err)
	}
	defer rows.Close()

	var out []BreachedComplaint
	for rows.Next() {
		var bc BreachedComplaint
		var deadline string
		var daysOverdue, ageDays sql.NullFloat64
		if err := rows.Scan(&bc.ComplaintID, &bc.DepartmentID, &bc.DepartmentName,
			&bc.Status, &bc.Urgency, &deadline, &daysOverdue, &ageDays); err != nil {
			return nil, fmt.Errorf("scanning complaint deadline row: %w", err)
		}
		bc.SLADeadline, _ = time.Parse(db.TimeFormat, deadline)
		bc.DaysOverdue = daysOverdue.Float64
		bc.AgeDays = ageDays.Float64
		out = append(out, bc)
	}
	return out, rows.Err()
}
