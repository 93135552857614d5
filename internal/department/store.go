package department

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/grievd/internal/db"
)

// Store provides persistence for departments.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// DB exposes the underlying handle for callers that need to run store
// methods inside their own transaction.
func (s *Store) DB() *db.DB { return s.db }

// Create inserts a new department. If d.ID is empty a UUID is generated.
func (s *Store) Create(ctx context.Context, d Department) (*Department, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.SLADays <= 0 {
		d.SLADays = 7
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO departments (id, name, description, sla_days, contact_email, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Description, d.SLADays, d.ContactEmail, boolToInt(d.Active),
		now.Format(db.TimeFormat), now.Format(db.TimeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting department: %w", err)
	}
	return &d, nil
}

const departmentColumns = `id, name, description, sla_days, contact_email, active, created_at, updated_at`

// GetByID retrieves a department by ID. Returns (nil, nil) if absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Department, error) {
	return s.get(ctx, s.db, id)
}

// GetByIDTx is GetByID running on the given querier, for use inside
// transactions.
func (s *Store) GetByIDTx(ctx context.Context, q db.Querier, id string) (*Department, error) {
	return s.get(ctx, q, id)
}

func (s *Store) get(ctx context.Context, q db.Querier, id string) (*Department, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE id = ?`, id)
	return scanDepartment(row)
}

// GetByName retrieves a department by exact name on the given querier.
// Returns (nil, nil) if absent.
func (s *Store) GetByName(ctx context.Context, q db.Querier, name string) (*Department, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE name = ?`, name)
	return scanDepartment(row)
}

// GetActiveByName retrieves an active department by exact name.
// Returns (nil, nil) if absent or inactive.
func (s *Store) GetActiveByName(ctx context.Context, q db.Querier, name string) (*Department, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE name = ? AND active = 1`, name)
	return scanDepartment(row)
}

// AnyActive returns the oldest active department, excluding the given ID
// if non-empty. Returns (nil, nil) when no active department exists.
func (s *Store) AnyActive(ctx context.Context, q db.Querier, excludeID string) (*Department, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments
		 WHERE active = 1 AND id != ?
		 ORDER BY created_at ASC, id ASC LIMIT 1`, excludeID)
	return scanDepartment(row)
}

// List returns all departments, optionally restricted to active ones.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		d, err := scanDepartmentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of req to the department and returns
// the updated row. Returns (nil, nil) if the department does not exist.
func (s *Store) Update(ctx context.Context, id string, req UpdateRequest) (*Department, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}

	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.SLADays != nil {
		if *req.SLADays <= 0 {
			return nil, fmt.Errorf("sla_days must be positive")
		}
		d.SLADays = *req.SLADays
	}
	if req.ContactEmail != nil {
		d.ContactEmail = *req.ContactEmail
	}
	if req.Active != nil {
		d.Active = *req.Active
	}
	d.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`UPDATE departments SET name = ?, description = ?, sla_days = ?, contact_email = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		d.Name, d.Description, d.SLADays, d.ContactEmail, boolToInt(d.Active),
		d.UpdatedAt.Format(db.TimeFormat), d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating department: %w", err)
	}
	return d, nil
}

// Deactivate marks a department inactive. It stays in history and keeps
// its existing complaints but receives no new assignments.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE departments SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(db.TimeFormat), id)
	if err != nil {
		return fmt.Errorf("deactivating department: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("department %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row *sql.Row) (*Department, error) {
	d, err := scanDept(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

func scanDepartmentRows(rows *sql.Rows) (*Department, error) {
	return scanDept(rows)
}

func scanDept(r rowScanner) (*Department, error) {
	var d Department
	var active int
	var createdAt, updatedAt string

	err := r.Scan(&d.ID, &d.Name, &d.Description, &d.SLADays, &d.ContactEmail, &active, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning department: %w", err)
	}
	d.Active = active != 0
	d.CreatedAt, _ = time.Parse(db.TimeFormat, createdAt)
	d.UpdatedAt, _ = time.Parse(db.TimeFormat, updatedAt)
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
