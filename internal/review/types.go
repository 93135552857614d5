package review

import (
	"time"

	"github.com/civicgrid/grievd/internal/classify"
)

// Outcome is the terminal result of a manual review.
type Outcome string

const (
	// OutcomePending means the entry is still waiting for a reviewer.
	OutcomePending Outcome = "pending"
	// OutcomeApproved accepts the automatic classification as-is.
	OutcomeApproved Outcome = "approved"
	// OutcomeRejected dismisses the complaint entirely.
	OutcomeRejected Outcome = "rejected"
	// OutcomeModified accepts the complaint with reviewer corrections.
	OutcomeModified Outcome = "modified"
)

// Valid reports whether o is a recognized review outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePending, OutcomeApproved, OutcomeRejected, OutcomeModified:
		return true
	}
	return false
}

// Entry is one manual review queue item. It is created atomically with
// its complaint when classification confidence falls below the review
// threshold, snapshots the original classification, and becomes
// immutable once a reviewer has acted on it.
type Entry struct {
	ID                   string           `json:"id"`
	ComplaintID          string           `json:"complaint_id"`
	FlaggedReason        string           `json:"flagged_reason"`
	OriginalCategory     string           `json:"original_category"`
	OriginalUrgency      classify.Urgency `json:"original_urgency"`
	OriginalLocation     string           `json:"original_location,omitempty"`
	OriginalDepartmentID string           `json:"original_department_id,omitempty"`
	OriginalConfidence   float64          `json:"original_confidence"`
	OverrideStatus       Outcome          `json:"override_status"`
	ReviewedBy           string           `json:"reviewed_by,omitempty"`
	OverrideNotes        string           `json:"override_notes,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	ReviewedAt           *time.Time       `json:"reviewed_at,omitempty"`
}

// Decision is a reviewer's verdict on a pending entry. Category,
// Urgency, and DepartmentID are only consulted when Outcome is
// modified; nil fields keep the original values.
type Decision struct {
	Outcome      Outcome           `json:"outcome"`
	ReviewerID   string            `json:"reviewer_id"`
	Notes        string            `json:"notes,omitempty"`
	Category     *string           `json:"category,omitempty"`
	Urgency      *classify.Urgency `json:"urgency,omitempty"`
	DepartmentID *string           `json:"department_id,omitempty"`
}
