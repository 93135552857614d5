package review

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/db"
)

func setupStore(t *testing.T) (*Store, *db.DB) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database), database
}

func insertComplaint(t *testing.T, database *db.DB, id string) {
	t.Helper()
	now := time.Now().UTC().Format(db.TimeFormat)
	_, err := database.Exec(`
		INSERT OR IGNORE INTO departments (id, name, sla_days, created_at, updated_at)
		VALUES ('d1', 'Sanitation', 3, ?, ?)`, now, now)
	if err != nil {
		t.Fatalf("inserting department: %v", err)
	}
	_, err = database.Exec(`
		INSERT INTO complaints (id, text, category, urgency, department_id, status, sla_deadline, created_at, updated_at)
		VALUES (?, 'test', 'other', 'medium', 'd1', 'pending', ?, ?, ?)`, id, now, now, now)
	if err != nil {
		t.Fatalf("inserting complaint: %v", err)
	}
}

func createEntry(t *testing.T, store *Store, database *db.DB, complaintID string) *Entry {
	t.Helper()
	insertComplaint(t, database, complaintID)
	e := &Entry{
		ComplaintID:        complaintID,
		FlaggedReason:      "low confidence",
		OriginalCategory:   "other",
		OriginalUrgency:    classify.UrgencyMedium,
		OriginalConfidence: 0.3,
	}
	err := database.WithTx(context.Background(), func(tx *sql.Tx) error {
		return store.CreateTx(context.Background(), tx, e)
	})
	if err != nil {
		t.Fatalf("CreateTx: %v", err)
	}
	return e
}

func TestCreateAndGet(t *testing.T) {
	store, database := setupStore(t)
	e := createEntry(t, store, database, "c1")

	got, err := store.GetByComplaint(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetByComplaint: %v", err)
	}
	if got == nil || got.ID != e.ID {
		t.Fatalf("got %+v, want entry %s", got, e.ID)
	}
	if got.OverrideStatus != OutcomePending {
		t.Errorf("OverrideStatus = %s, want pending", got.OverrideStatus)
	}
	if got.OriginalConfidence != 0.3 {
		t.Errorf("OriginalConfidence = %v, want 0.3", got.OriginalConfidence)
	}
	if got.ReviewedAt != nil {
		t.Errorf("ReviewedAt should be nil before review")
	}
}

func TestGetByComplaintMissing(t *testing.T) {
	store, _ := setupStore(t)
	got, err := store.GetByComplaint(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByComplaint: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unflagged complaint, got %+v", got)
	}
}

func TestOneEntryPerComplaint(t *testing.T) {
	store, database := setupStore(t)
	createEntry(t, store, database, "c1")

	dup := &Entry{ComplaintID: "c1", OriginalCategory: "other", OriginalUrgency: classify.UrgencyMedium}
	err := database.WithTx(context.Background(), func(tx *sql.Tx) error {
		return store.CreateTx(context.Background(), tx, dup)
	})
	if err == nil {
		t.Fatal("expected unique constraint violation for second entry")
	}
}

func TestMarkReviewedIsTerminal(t *testing.T) {
	store, database := setupStore(t)
	e := createEntry(t, store, database, "c1")
	ctx := context.Background()

	err := database.WithTx(ctx, func(tx *sql.Tx) error {
		return store.MarkReviewedTx(ctx, tx, e.ID, OutcomeApproved, "reviewer-1", "looks right", time.Now())
	})
	if err != nil {
		t.Fatalf("MarkReviewedTx: %v", err)
	}

	got, err := store.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OverrideStatus != OutcomeApproved || got.ReviewedBy != "reviewer-1" || got.ReviewedAt == nil {
		t.Errorf("entry not closed properly: %+v", got)
	}

	// Second review attempt must fail.
	err = database.WithTx(ctx, func(tx *sql.Tx) error {
		return store.MarkReviewedTx(ctx, tx, e.ID, OutcomeRejected, "reviewer-2", "", time.Now())
	})
	if err == nil {
		t.Fatal("expected error reviewing an already-reviewed entry")
	}
}

func TestListAndPendingCount(t *testing.T) {
	store, database := setupStore(t)
	ctx := context.Background()
	e1 := createEntry(t, store, database, "c1")
	createEntry(t, store, database, "c2")

	if err := database.WithTx(ctx, func(tx *sql.Tx) error {
		return store.MarkReviewedTx(ctx, tx, e1.ID, OutcomeModified, "r1", "", time.Now())
	}); err != nil {
		t.Fatalf("MarkReviewedTx: %v", err)
	}

	pending, err := store.List(ctx, OutcomePending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 || pending[0].ComplaintID != "c2" {
		t.Errorf("pending list = %+v", pending)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	n, err := store.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if n != 1 {
		t.Errorf("PendingCount = %d, want 1", n)
	}
}
