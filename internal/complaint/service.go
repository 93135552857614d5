package complaint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/grievd/internal/audit"
	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/db"
	"github.com/civicgrid/grievd/internal/department"
	"github.com/civicgrid/grievd/internal/explain"
	"github.com/civicgrid/grievd/internal/review"
	"github.com/civicgrid/grievd/internal/routing"
	"github.com/civicgrid/grievd/internal/sla"
)

// ErrCreationFailed wraps any failure inside the complaint intake
// transaction. The whole unit rolls back; partial writes are never
// observable.
var ErrCreationFailed = errors.New("complaint creation failed")

// DefaultReviewThreshold is the confidence below which a complaint is
// parked for manual review instead of being auto-assigned.
const DefaultReviewThreshold = 0.6

// Service orchestrates the complaint lifecycle: intake as one atomic
// unit (routing, deadline, admission, review entry, audit record),
// status transitions, and manual review verdicts.
type Service struct {
	db          *db.DB
	complaints  *Store
	departments *department.Store
	resolver    *routing.Resolver
	reviews     *review.Store
	audits      *audit.Store
	explainer   *explain.Explainer
	threshold   float64
	logger      *slog.Logger

	now func() time.Time
}

// NewService wires the lifecycle service. A threshold of zero selects
// DefaultReviewThreshold.
func NewService(database *db.DB, complaints *Store, departments *department.Store, resolver *routing.Resolver, reviews *review.Store, audits *audit.Store, explainer *explain.Explainer, threshold float64, logger *slog.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:          database,
		complaints:  complaints,
		departments: departments,
		resolver:    resolver,
		reviews:     reviews,
		audits:      audits,
		explainer:   explainer,
		threshold:   threshold,
		logger:      logger,
		now:         time.Now,
	}
}

// Store exposes the underlying complaint store for read paths.
func (s *Service) Store() *Store { return s.complaints }

// Create routes a classified complaint to a department and persists it.
// Classification has already happened; no external calls occur inside
// the transaction. Confidence at or above the threshold yields an
// assigned complaint; below it the complaint is created pending with a
// review queue entry, all in the same transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest, c classify.Classification) (*Complaint, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrCreationFailed)
	}
	c = classify.Normalize(c)
	if req.Location != "" {
		c.Location = req.Location
	}

	now := s.now().UTC()
	created := Complaint{
		ID:          uuid.New().String(),
		SubmitterID: req.SubmitterID,
		Text:        req.Text,
		Category:    c.Category,
		Urgency:     c.Urgency,
		Location:    c.Location,
		Intent:      c.Intent,
		Confidence:  c.Confidence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var res *routing.Resolution
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = s.resolver.Resolve(ctx, tx, c.Category, c.Urgency, c.Location)
		if err != nil {
			return err
		}

		created.DepartmentID = res.DepartmentID
		created.SLADeadline = sla.ComputeDeadline(res.SLADays, c.Urgency, now)
		created.AssignedBy = AssignedAutomatic

		needsReview := c.NeedsReview(s.threshold)
		if needsReview {
			created.Status = StatusPending
		} else {
			created.Status = StatusAssigned
		}

		if err := s.complaints.InsertTx(ctx, tx, &created); err != nil {
			return err
		}

		if needsReview {
			entry := &review.Entry{
				ComplaintID:          created.ID,
				FlaggedReason:        explain.ReviewFlagReason(c, s.threshold),
				OriginalCategory:     c.Category,
				OriginalUrgency:      c.Urgency,
				OriginalLocation:     c.Location,
				OriginalDepartmentID: res.DepartmentID,
				OriginalConfidence:   c.Confidence,
			}
			if err := s.reviews.CreateTx(ctx, tx, entry); err != nil {
				return err
			}
		}

		return s.audits.Log(ctx, tx, audit.Record{
			EntityType: audit.EntityComplaint,
			EntityID:   created.ID,
			Action:     audit.ActionCreated,
			ActorID:    req.SubmitterID,
			NewValue: audit.Snapshot(map[string]any{
				"category":     c.Category,
				"urgency":      c.Urgency,
				"department":   res.DepartmentName,
				"confidence":   c.Confidence,
				"needs_review": needsReview,
				"match_kind":   res.MatchKind,
			}),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreationFailed, err)
	}

	// The narrative is cosmetic; generate and attach it outside the
	// transaction so a slow or failing provider cannot block intake.
	explanation := s.explainer.RoutingExplanation(ctx, created.Text, c, *res, created.SLADeadline)
	if err := s.complaints.SetExplanation(ctx, created.ID, explanation); err != nil {
		s.logger.Warn("attaching routing explanation failed", "complaint", created.ID, "error", err)
	} else {
		created.Explanation = explanation
	}

	s.logger.Info("complaint created",
		"complaint", created.ID, "category", c.Category, "urgency", c.Urgency,
		"department", res.DepartmentName, "status", created.Status)
	return &created, nil
}

// UpdateStatus moves a complaint through its state machine, rejecting
// transitions the machine does not allow.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status, actorID string) (*Complaint, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("invalid status %q", to)
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.complaints.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("complaint %s not found", id)
		}
		if !ValidTransition(cur.Status, to) {
			return fmt.Errorf("invalid status transition %s -> %s", cur.Status, to)
		}

		now := s.now().UTC()
		if err := s.complaints.UpdateStatusTx(ctx, tx, id, to, now); err != nil {
			return err
		}

		return s.audits.Log(ctx, tx, audit.Record{
			EntityType: audit.EntityComplaint,
			EntityID:   id,
			Action:     audit.ActionStatusChanged,
			ActorID:    actorID,
			OldValue:   audit.Snapshot(map[string]any{"status": cur.Status}),
			NewValue:   audit.Snapshot(map[string]any{"status": to}),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.complaints.Get(ctx, id)
}

// Review applies a reviewer's verdict to a flagged complaint. Approve
// confirms the automatic classification, reject closes the complaint,
// and modify reassigns with the reviewer's corrections and a fresh
// deadline. The entry is terminal once reviewed. Implements
// review.Reviewer.
func (s *Service) Review(ctx context.Context, complaintID string, d review.Decision) (*review.Entry, error) {
	if !d.Outcome.Valid() || d.Outcome == review.OutcomePending {
		return nil, fmt.Errorf("invalid review outcome %q", d.Outcome)
	}

	var entry *review.Entry
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		entry, err = s.reviews.GetByComplaintTx(ctx, tx, complaintID)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("complaint %s was not flagged for review", complaintID)
		}
		if entry.OverrideStatus != review.OutcomePending {
			return fmt.Errorf("complaint %s already reviewed (%s)", complaintID, entry.OverrideStatus)
		}

		cur, err := s.complaints.GetTx(ctx, tx, complaintID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("complaint %s not found", complaintID)
		}
		if cur.Status.Terminal() {
			return fmt.Errorf("complaint %s is %s and no longer reviewable", complaintID, cur.Status)
		}

		now := s.now().UTC()
		updated := *cur

		switch d.Outcome {
		case review.OutcomeApproved:
			updated.Status = StatusAssigned
			updated.AssignedBy = AssignedManual
			if err := s.complaints.ReassignTx(ctx, tx, complaintID,
				cur.Category, cur.Urgency, cur.DepartmentID,
				StatusAssigned, AssignedManual, cur.SLADeadline, now); err != nil {
				return err
			}

		case review.OutcomeRejected:
			updated.Status = StatusClosed
			if !ValidTransition(cur.Status, StatusClosed) {
				return fmt.Errorf("complaint %s cannot be closed from %s", complaintID, cur.Status)
			}
			if err := s.complaints.UpdateStatusTx(ctx, tx, complaintID, StatusClosed, now); err != nil {
				return err
			}

		case review.OutcomeModified:
			category, urgency, err := s.applyOverrides(cur, d)
			if err != nil {
				return err
			}

			deptID := ""
			slaDays := 0
			if d.DepartmentID != nil {
				dept, err := s.departments.GetByIDTx(ctx, tx, *d.DepartmentID)
				if err != nil {
					return err
				}
				if dept == nil || !dept.Active {
					return fmt.Errorf("department %s is not an active routing target", *d.DepartmentID)
				}
				deptID, slaDays = dept.ID, dept.SLADays
			} else {
				res, err := s.resolver.Resolve(ctx, tx, category, urgency, cur.Location)
				if err != nil {
					return err
				}
				deptID, slaDays = res.DepartmentID, res.SLADays
			}

			updated.Category = category
			updated.Urgency = urgency
			updated.DepartmentID = deptID
			updated.Status = StatusAssigned
			updated.AssignedBy = AssignedManual
			if err := s.complaints.ReassignTx(ctx, tx, complaintID,
				category, urgency, deptID,
				StatusAssigned, AssignedManual,
				sla.ComputeDeadline(slaDays, urgency, now), now); err != nil {
				return err
			}
		}

		if err := s.reviews.MarkReviewedTx(ctx, tx, entry.ID, d.Outcome, d.ReviewerID, d.Notes, now); err != nil {
			return err
		}
		entry.OverrideStatus = d.Outcome
		entry.ReviewedBy = d.ReviewerID
		entry.OverrideNotes = d.Notes
		entry.ReviewedAt = &now

		return s.audits.Log(ctx, tx, audit.Record{
			EntityType: audit.EntityComplaint,
			EntityID:   complaintID,
			Action:     audit.ActionReviewed,
			ActorID:    d.ReviewerID,
			OldValue: audit.Snapshot(map[string]any{
				"status": cur.Status, "category": cur.Category,
				"urgency": cur.Urgency, "department_id": cur.DepartmentID,
			}),
			NewValue: audit.Snapshot(map[string]any{
				"status": updated.Status, "category": updated.Category,
				"urgency": updated.Urgency, "department_id": updated.DepartmentID,
				"outcome": d.Outcome,
			}),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint reviewed",
		"complaint", complaintID, "outcome", d.Outcome, "reviewer", d.ReviewerID)
	return entry, nil
}

func (s *Service) applyOverrides(cur *Complaint, d review.Decision) (string, classify.Urgency, error) {
	category := cur.Category
	if d.Category != nil {
		if !classify.ValidCategory(*d.Category) {
			return "", "", fmt.Errorf("invalid category %q", *d.Category)
		}
		category = *d.Category
	}
	urgency := cur.Urgency
	if d.Urgency != nil {
		if !d.Urgency.Valid() {
			return "", "", fmt.Errorf("invalid urgency %q", *d.Urgency)
		}
		urgency = *d.Urgency
	}
	return category, urgency, nil
}
