package routing

import (
	"time"

	"github.com/civicgrid/grievd/internal/classify"
)

// Rule routes classified complaints to a department. Nil Category,
// Urgency, or Location act as wildcards; a rule constraining more
// fields is more specific and wins over a more general one regardless
// of priority. Among equally specific rules the highest priority wins,
// and on a priority tie the oldest rule (lowest ID) wins so resolution
// stays deterministic.
type Rule struct {
	ID           int64            `json:"id"`
	Category     *string          `json:"category"`
	Urgency      *classify.Urgency `json:"urgency"`
	Location     *string          `json:"location"`
	DepartmentID string           `json:"department_id"`
	Priority     int              `json:"priority"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// MatchKind says which resolution tier produced a department.
type MatchKind string

const (
	// MatchExact is a category + urgency + location rule match.
	MatchExact MatchKind = "exact"
	// MatchCategoryUrgency is a category + urgency rule match with a
	// wildcard location.
	MatchCategoryUrgency MatchKind = "category_urgency"
	// MatchCategory is a category-only rule match.
	MatchCategory MatchKind = "category"
	// MatchFallbackRule is the generic "other"-category fallback rule.
	MatchFallbackRule MatchKind = "fallback_rule"
	// MatchDefaultDepartment means no rule applied and the configured
	// default department was used directly.
	MatchDefaultDepartment MatchKind = "default_department"
	// MatchAnyDepartment is the last resort: no rule applied and the
	// default department is missing or inactive, so the oldest active
	// department was chosen.
	MatchAnyDepartment MatchKind = "any_department"
)

// Resolution is the outcome of resolving a classification to a
// department.
type Resolution struct {
	DepartmentID   string    `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	SLADays        int       `json:"sla_days"`
	RuleID         int64     `json:"rule_id,omitempty"`
	MatchKind      MatchKind `json:"match_kind"`
}
