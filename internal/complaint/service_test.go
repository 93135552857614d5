package complaint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/civicgrid/grievd/internal/audit"
	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/db"
	"github.com/civicgrid/grievd/internal/department"
	"github.com/civicgrid/grievd/internal/explain"
	"github.com/civicgrid/grievd/internal/review"
	"github.com/civicgrid/grievd/internal/routing"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db          *db.DB
	service     *Service
	departments *department.Store
	rules       *routing.Store
	reviews     *review.Store
	audits      *audit.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	departments := department.NewStore(database)
	resolver := routing.NewResolver(database, departments, "General Administration")
	reviews := review.NewStore(database)
	audits := audit.NewStore(database)
	explainer := explain.NewExplainer(nil, "", nil)

	svc := NewService(database, NewStore(database), departments, resolver, reviews, audits, explainer, 0.6, nil)
	svc.now = func() time.Time { return testNow }

	return &fixture{
		db:          database,
		service:     svc,
		departments: departments,
		rules:       routing.NewStore(database),
		reviews:     reviews,
		audits:      audits,
	}
}

func (f *fixture) dept(t *testing.T, name string, slaDays int) *department.Department {
	t.Helper()
	d, err := f.departments.Create(context.Background(), department.Department{
		Name: name, SLADays: slaDays, Active: true,
	})
	if err != nil {
		t.Fatalf("creating department %s: %v", name, err)
	}
	return d
}

func (f *fixture) rule(t *testing.T, category string, deptID string, priority int) {
	t.Helper()
	_, err := f.rules.Create(context.Background(), routing.Rule{
		Category: &category, DepartmentID: deptID, Priority: priority, Active: true,
	})
	if err != nil {
		t.Fatalf("creating rule: %v", err)
	}
}

func TestCreateHighConfidenceAutoAssigns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sanitation := f.dept(t, "Sanitation", 2)
	f.rule(t, "sewage", sanitation.ID, 10)

	created, err := f.service.Create(ctx, CreateRequest{Text: "Sewage overflowing on MG Road"}, classify.Classification{
		Category: "sewage", Urgency: classify.UrgencyHigh, Intent: "Fix sewage", Confidence: 0.92,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.Status != StatusAssigned {
		t.Errorf("Status = %s, want assigned", created.Status)
	}
	if created.AssignedBy != AssignedAutomatic {
		t.Errorf("AssignedBy = %s, want automatic", created.AssignedBy)
	}
	if created.DepartmentID != sanitation.ID {
		t.Errorf("DepartmentID = %s, want %s", created.DepartmentID, sanitation.ID)
	}
	// Base 2 days at high urgency halves to 1.
	if want := testNow.AddDate(0, 0, 1); !created.SLADeadline.Equal(want) {
		t.Errorf("SLADeadline = %v, want %v", created.SLADeadline, want)
	}
	if created.Explanation == "" {
		t.Error("expected a routing explanation")
	}

	entry, err := f.reviews.GetByComplaint(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByComplaint: %v", err)
	}
	if entry != nil {
		t.Errorf("high-confidence complaint must not be flagged for review")
	}

	n, err := f.audits.CountByEntity(ctx, audit.EntityComplaint, created.ID)
	if err != nil {
		t.Fatalf("CountByEntity: %v", err)
	}
	if n != 1 {
		t.Errorf("audit records = %d, want 1", n)
	}
}

func TestCreateLowConfidenceParksForReview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	general := f.dept(t, "General Administration", 7)

	created, err := f.service.Create(ctx, CreateRequest{Text: "something is wrong"}, classify.Classification{
		Category: "other", Urgency: classify.UrgencyMedium, Intent: "Unclear", Confidence: 0.45,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.Status != StatusPending {
		t.Errorf("Status = %s, want pending", created.Status)
	}
	if created.DepartmentID != general.ID {
		t.Errorf("DepartmentID = %s, want default department", created.DepartmentID)
	}

	entry, err := f.reviews.GetByComplaint(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByComplaint: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a review entry")
	}
	if entry.OverrideStatus != review.OutcomePending {
		t.Errorf("OverrideStatus = %s, want pending", entry.OverrideStatus)
	}
	if entry.OriginalCategory != "other" || entry.OriginalUrgency != classify.UrgencyMedium || entry.OriginalConfidence != 0.45 {
		t.Errorf("snapshot mismatch: %+v", entry)
	}
	if entry.FlaggedReason == "" {
		t.Error("expected a flagged reason")
	}
}

func TestCreateThresholdBoundary(t *testing.T) {
	f := setup(t)
	f.dept(t, "General Administration", 7)

	// Exactly at the threshold is auto-assigned.
	created, err := f.service.Create(context.Background(), CreateRequest{Text: "boundary"}, classify.Classification{
		Category: "other", Urgency: classify.UrgencyMedium, Intent: "x", Confidence: 0.6,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != StatusAssigned {
		t.Errorf("Status at threshold = %s, want assigned", created.Status)
	}
}

func TestCreateWithNoActiveDepartmentFails(t *testing.T) {
	f := setup(t)

	_, err := f.service.Create(context.Background(), CreateRequest{Text: "void"}, classify.Classification{
		Category: "road", Urgency: classify.UrgencyLow, Intent: "x", Confidence: 0.9,
	})
	if err == nil {
		t.Fatal("expected creation to fail with no departments")
	}
	if !errors.Is(err, ErrCreationFailed) {
		t.Errorf("error should wrap ErrCreationFailed: %v", err)
	}
	if !errors.Is(err, routing.ErrNoRoutableDepartment) {
		t.Errorf("error should wrap ErrNoRoutableDepartment: %v", err)
	}

	// Nothing may be left behind from the aborted unit.
	complaints, err := f.service.Store().List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(complaints) != 0 {
		t.Errorf("expected no complaints after rollback, got %d", len(complaints))
	}
}

func TestCreateLocationOverride(t *testing.T) {
	f := setup(t)
	f.dept(t, "General Administration", 7)

	created, err := f.service.Create(context.Background(),
		CreateRequest{Text: "pothole", Location: "Ward 7"},
		classify.Classification{Category: "pothole", Urgency: classify.UrgencyLow, Intent: "x", Confidence: 0.9, Location: "somewhere"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Location != "Ward 7" {
		t.Errorf("Location = %q, want request override", created.Location)
	}
}

func TestUpdateStatusFollowsStateMachine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.dept(t, "General Administration", 7)

	created, err := f.service.Create(ctx, CreateRequest{Text: "x"}, classify.Classification{
		Category: "road", Urgency: classify.UrgencyMedium, Intent: "x", Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	c, err := f.service.UpdateStatus(ctx, created.ID, StatusInProgress, "worker-1")
	if err != nil {
		t.Fatalf("UpdateStatus to in_progress: %v", err)
	}
	if c.Status != StatusInProgress {
		t.Errorf("Status = %s", c.Status)
	}

	c, err = f.service.UpdateStatus(ctx, created.ID, StatusResolved, "worker-1")
	if err != nil {
		t.Fatalf("UpdateStatus to resolved: %v", err)
	}
	if c.ResolvedAt == nil {
		t.Error("ResolvedAt must be set when resolved")
	}

	// Terminal states accept no further transitions.
	if _, err := f.service.UpdateStatus(ctx, created.ID, StatusAssigned, "worker-1"); err == nil {
		t.Error("expected transition out of resolved to fail")
	}
}

func TestValidTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAssigned, true},
		{StatusPending, StatusEscalated, true},
		{StatusAssigned, StatusInProgress, true},
		{StatusAssigned, StatusResolved, true},
		{StatusInProgress, StatusResolved, true},
		{StatusInProgress, StatusClosed, true},
		{StatusEscalated, StatusAssigned, true},
		{StatusEscalated, StatusEscalated, false},
		{StatusResolved, StatusAssigned, false},
		{StatusResolved, StatusEscalated, false},
		{StatusClosed, StatusEscalated, false},
		{StatusPending, StatusResolved, false},
	}
	for _, tc := range cases {
		if got := ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func lowConfidenceComplaint(t *testing.T, f *fixture) *Complaint {
	t.Helper()
	created, err := f.service.Create(context.Background(), CreateRequest{Text: "unclear"}, classify.Classification{
		Category: "other", Urgency: classify.UrgencyMedium, Intent: "x", Confidence: 0.3,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return created
}

func TestReviewApprove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.dept(t, "General Administration", 7)
	created := lowConfidenceComplaint(t, f)

	entry, err := f.service.Review(ctx, created.ID, review.Decision{
		Outcome: review.OutcomeApproved, ReviewerID: "reviewer-1", Notes: "classification ok",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if entry.OverrideStatus != review.OutcomeApproved || entry.ReviewedBy != "reviewer-1" {
		t.Errorf("entry = %+v", entry)
	}

	c, _ := f.service.Store().Get(ctx, created.ID)
	if c.Status != StatusAssigned || c.AssignedBy != AssignedManual {
		t.Errorf("complaint after approve: status=%s assigned_by=%s", c.Status, c.AssignedBy)
	}

	// A second verdict on the same complaint is refused.
	if _, err := f.service.Review(ctx, created.ID, review.Decision{
		Outcome: review.OutcomeRejected, ReviewerID: "reviewer-2",
	}); err == nil {
		t.Error("expected second review to fail")
	}
}

func TestReviewReject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.dept(t, "General Administration", 7)
	created := lowConfidenceComplaint(t, f)

	if _, err := f.service.Review(ctx, created.ID, review.Decision{
		Outcome: review.OutcomeRejected, ReviewerID: "reviewer-1", Notes: "duplicate",
	}); err != nil {
		t.Fatalf("Review: %v", err)
	}

	c, _ := f.service.Store().Get(ctx, created.ID)
	if c.Status != StatusClosed {
		t.Errorf("Status = %s, want closed", c.Status)
	}
}

func TestReviewModifiedReassignsAndRecomputesDeadline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.dept(t, "General Administration", 7)
	sanitation := f.dept(t, "Sanitation", 2)
	f.rule(t, "sewage", sanitation.ID, 10)
	created := lowConfidenceComplaint(t, f)

	category := "sewage"
	urgency := classify.UrgencyCritical
	entry, err := f.service.Review(ctx, created.ID, review.Decision{
		Outcome:    review.OutcomeModified,
		ReviewerID: "reviewer-1",
		Category:   &category,
		Urgency:    &urgency,
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if entry.OverrideStatus != review.OutcomeModified {
		t.Errorf("OverrideStatus = %s", entry.OverrideStatus)
	}

	c, _ := f.service.Store().Get(ctx, created.ID)
	if c.Category != "sewage" || c.Urgency != classify.UrgencyCritical {
		t.Errorf("overrides not applied: %+v", c)
	}
	if c.DepartmentID != sanitation.ID {
		t.Errorf("DepartmentID = %s, want re-resolved Sanitation", c.DepartmentID)
	}
	// Base 2 at critical quarters to 0, floored at 1 day from review time.
	if want := testNow.AddDate(0, 0, 1); !c.SLADeadline.Equal(want) {
		t.Errorf("SLADeadline = %v, want %v", c.SLADeadline, want)
	}
	if c.AssignedBy != AssignedManual {
		t.Errorf("AssignedBy = %s, want manual", c.AssignedBy)
	}
}

func TestReviewModifiedExplicitDepartmentMustBeActive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.dept(t, "General Administration", 7)
	retired := f.dept(t, "Retired", 3)
	if err := f.departments.Deactivate(ctx, retired.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	created := lowConfidenceComplaint(t, f)

	if _, err := f.service.Review(ctx, created.ID, review.Decision{
		Outcome: review.OutcomeModified, ReviewerID: "r1", DepartmentID: &retired.ID,
	}); err == nil {
		t.Error("expected review targeting an inactive department to fail")
	}
}

func TestReviewRefusedOnceComplaintTerminal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.dept(t, "General Administration", 7)
	created := lowConfidenceComplaint(t, f)

	// The department works the complaint to completion while the review
	// entry is still waiting.
	if _, err := f.service.UpdateStatus(ctx, created.ID, StatusAssigned, "worker-1"); err != nil {
		t.Fatalf("UpdateStatus to assigned: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, created.ID, StatusResolved, "worker-1"); err != nil {
		t.Fatalf("UpdateStatus to resolved: %v", err)
	}

	for _, outcome := range []review.Outcome{review.OutcomeApproved, review.OutcomeModified, review.OutcomeRejected} {
		if _, err := f.service.Review(ctx, created.ID, review.Decision{
			Outcome: outcome, ReviewerID: "reviewer-1",
		}); err == nil {
			t.Errorf("expected %s verdict on a resolved complaint to fail", outcome)
		}
	}

	c, _ := f.service.Store().Get(ctx, created.ID)
	if c.Status != StatusResolved {
		t.Errorf("Status = %s, want resolved untouched", c.Status)
	}
	if c.ResolvedAt == nil {
		t.Error("ResolvedAt must stay set")
	}
	entry, _ := f.reviews.GetByComplaint(ctx, created.ID)
	if entry.OverrideStatus != review.OutcomePending {
		t.Errorf("OverrideStatus = %s, want pending after refused verdicts", entry.OverrideStatus)
	}
}

func TestReviewUnflaggedComplaintFails(t *testing.T) {
	f := setup(t)
	f.dept(t, "General Administration", 7)

	created, err := f.service.Create(context.Background(), CreateRequest{Text: "clear"}, classify.Classification{
		Category: "road", Urgency: classify.UrgencyLow, Intent: "x", Confidence: 0.95,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.service.Review(context.Background(), created.ID, review.Decision{
		Outcome: review.OutcomeApproved, ReviewerID: "r1",
	}); err == nil {
		t.Error("expected review of unflagged complaint to fail")
	}
}
