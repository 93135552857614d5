package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// TimeFormat is the canonical storage format for all timestamps. Every
// time value is written as a UTC string in this format so that deadline
// comparisons and julianday() arithmetic behave consistently.
const TimeFormat = "2006-01-02 15:04:05"

// Querier is the subset of database/sql operations shared by *sql.DB and
// *sql.Tx. Store methods that must be able to run inside a transaction
// accept a Querier instead of reaching for the DB directly.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB with grievd-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// WithTx runs fn inside a transaction. The transaction is rolled back if
// fn returns an error or panics, and committed otherwise. Multi-table
// writes (complaint + review entry + audit record, or escalation +
// status change + audit record) go through here so partial states are
// never observable.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rolling back after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS departments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    sla_days INTEGER NOT NULL DEFAULT 7 CHECK(sla_days > 0),
    contact_email TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS routing_rules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    category TEXT,
    urgency TEXT CHECK(urgency IS NULL OR urgency IN ('low','medium','high','critical')),
    location TEXT,
    department_id TEXT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
    priority INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_routing_rules_lookup ON routing_rules(category, urgency, location);

CREATE TABLE IF NOT EXISTS complaints (
    id TEXT PRIMARY KEY,
    submitter_id TEXT,
    text TEXT NOT NULL,
    category TEXT NOT NULL,
    urgency TEXT NOT NULL CHECK(urgency IN ('low','medium','high','critical')),
    location TEXT NOT NULL DEFAULT '',
    intent TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL DEFAULT 0,
    department_id TEXT NOT NULL REFERENCES departments(id),
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending','assigned','in_progress','resolved','escalated','closed')),
    assigned_by TEXT NOT NULL DEFAULT 'automatic' CHECK(assigned_by IN ('automatic','manual')),
    explanation TEXT NOT NULL DEFAULT '',
    sla_deadline TEXT NOT NULL,
    resolved_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_complaints_status ON complaints(status);
CREATE INDEX IF NOT EXISTS idx_complaints_department ON complaints(department_id);
CREATE INDEX IF NOT EXISTS idx_complaints_category ON complaints(category);
CREATE INDEX IF NOT EXISTS idx_complaints_sla ON complaints(sla_deadline);

CREATE TABLE IF NOT EXISTS manual_review_queue (
    id TEXT PRIMARY KEY,
    complaint_id TEXT NOT NULL UNIQUE REFERENCES complaints(id) ON DELETE CASCADE,
    flagged_reason TEXT NOT NULL DEFAULT '',
    original_category TEXT NOT NULL,
    original_urgency TEXT NOT NULL,
    original_location TEXT NOT NULL DEFAULT '',
    original_department_id TEXT,
    original_confidence REAL NOT NULL DEFAULT 0,
    override_status TEXT NOT NULL DEFAULT 'pending' CHECK(override_status IN ('pending','approved','rejected','modified')),
    reviewed_by TEXT,
    override_notes TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    reviewed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_manual_review_status ON manual_review_queue(override_status);

CREATE TABLE IF NOT EXISTS escalations (
    id TEXT PRIMARY KEY,
    complaint_id TEXT NOT NULL REFERENCES complaints(id) ON DELETE CASCADE,
    reason TEXT NOT NULL DEFAULT '',
    escalated_from TEXT REFERENCES departments(id) ON DELETE SET NULL,
    escalated_to TEXT REFERENCES departments(id) ON DELETE SET NULL,
    justification TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_escalations_complaint ON escalations(complaint_id);

CREATE TABLE IF NOT EXISTS audit_logs (
    id TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    action TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    actor_id TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
`
