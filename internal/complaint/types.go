package complaint

import (
	"time"

	"github.com/civicgrid/grievd/internal/classify"
)

// Status is a complaint's lifecycle state.
type Status string

const (
	// StatusPending means the complaint is parked for manual review and
	// not yet worked by its department.
	StatusPending Status = "pending"
	// StatusAssigned means the complaint sits with a department.
	StatusAssigned Status = "assigned"
	// StatusInProgress means the department has started work.
	StatusInProgress Status = "in_progress"
	// StatusResolved is terminal: the grievance was addressed.
	StatusResolved Status = "resolved"
	// StatusEscalated means the deadline was breached and the complaint
	// was forcibly reassigned. It can re-enter assigned.
	StatusEscalated Status = "escalated"
	// StatusClosed is terminal: the complaint was dismissed or closed
	// without resolution.
	StatusClosed Status = "closed"
)

// Valid reports whether s is a recognized status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusResolved, StatusEscalated, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether s ends the complaint's lifecycle. Escalated
// is not terminal: escalated complaints can be reassigned.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// ValidTransition reports whether a complaint may move from one status
// to another. Any non-terminal status may be escalated or closed;
// escalated complaints re-enter the normal flow through assigned.
func ValidTransition(from, to Status) bool {
	if from == to || from.Terminal() {
		return false
	}
	if to == StatusEscalated || to == StatusClosed {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusAssigned
	case StatusAssigned:
		return to == StatusInProgress || to == StatusResolved
	case StatusInProgress:
		return to == StatusResolved
	case StatusEscalated:
		return to == StatusAssigned
	}
	return false
}

// AssignedBy records whether routing was automatic or a human decision.
type AssignedBy string

const (
	AssignedAutomatic AssignedBy = "automatic"
	AssignedManual    AssignedBy = "manual"
)

// Complaint is one citizen grievance and its routing outcome.
type Complaint struct {
	ID           string           `json:"id"`
	SubmitterID  string           `json:"submitter_id,omitempty"`
	Text         string           `json:"text"`
	Category     string           `json:"category"`
	Urgency      classify.Urgency `json:"urgency"`
	Location     string           `json:"location,omitempty"`
	Intent       string           `json:"intent,omitempty"`
	Confidence   float64          `json:"confidence"`
	DepartmentID string           `json:"department_id"`
	Status       Status           `json:"status"`
	AssignedBy   AssignedBy       `json:"assigned_by"`
	Explanation  string           `json:"explanation,omitempty"`
	SLADeadline  time.Time        `json:"sla_deadline"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// CreateRequest is the raw intake payload. Location, when set,
// overrides whatever location the classifier extracted.
type CreateRequest struct {
	Text        string `json:"text"`
	SubmitterID string `json:"submitter_id,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ListFilter narrows complaint listings.
type ListFilter struct {
	Status       Status
	DepartmentID string
	Category     string
	Limit        int
	Offset       int
}
