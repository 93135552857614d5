package audit

import "time"

// EntityType identifies the kind of record an audit entry refers to.
type EntityType string

const (
	EntityComplaint   EntityType = "complaint"
	EntityDepartment  EntityType = "department"
	EntityRoutingRule EntityType = "routing_rule"
	EntityReview      EntityType = "review"
)

// Action describes what was done to the entity.
type Action string

const (
	ActionCreated       Action = "created"
	ActionStatusChanged Action = "status_changed"
	ActionEscalated     Action = "escalated"
	ActionReviewed      Action = "reviewed"
	ActionUpdated       Action = "updated"
)

// Record is a single append-only audit trail entry. OldValue and
// NewValue hold JSON snapshots of the mutated fields; ActorID is empty
// for actions taken by the system itself.
type Record struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Action     Action     `json:"action"`
	OldValue   string     `json:"old_value,omitempty"`
	NewValue   string     `json:"new_value,omitempty"`
	ActorID    string     `json:"actor_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
