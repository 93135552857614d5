package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/db"
	"github.com/civicgrid/grievd/internal/department"
)

// ErrNoRoutableDepartment means no active department exists anywhere.
// This is a configuration error requiring operator intervention, not a
// retryable condition.
var ErrNoRoutableDepartment = errors.New("no active department available for routing")

// Resolver deterministically selects a target department for a
// classified complaint. Tiers are tried most specific first; within a
// tier the active rule targeting an active department with the highest
// priority wins, ties broken by lowest rule ID. A rule pointing at an
// inactive department is skipped by the tier query itself, so
// resolution naturally falls through to the next tier.
type Resolver struct {
	db          *db.DB
	departments *department.Store
	defaultDept string
}

// NewResolver creates a Resolver. defaultDept names the department used
// when no rule matches (the ultimate fallback, independent of the rule
// table).
func NewResolver(database *db.DB, departments *department.Store, defaultDept string) *Resolver {
	return &Resolver{db: database, departments: departments, defaultDept: defaultDept}
}

// Resolve finds the target department for the given classification
// fields. The querier may be a transaction so that resolution is
// consistent with the writes that follow it. It never reports "no
// department" while at least one active department exists; with none it
// fails with ErrNoRoutableDepartment.
func (r *Resolver) Resolve(ctx context.Context, q db.Querier, category string, urgency classify.Urgency, location string) (*Resolution, error) {
	// Tier 1: category + urgency + location. A location matches when
	// either string contains the other, case-insensitively.
	if location != "" {
		res, err := r.matchTier(ctx, q, MatchExact, `
			SELECT r.id, r.department_id, d.name, d.sla_days
			FROM routing_rules r
			JOIN departments d ON d.id = r.department_id
			WHERE r.active = 1 AND d.active = 1
			  AND r.category = ? AND r.urgency = ?
			  AND r.location IS NOT NULL
			  AND (instr(lower(?), lower(r.location)) > 0 OR instr(lower(r.location), lower(?)) > 0)
			ORDER BY r.priority DESC, r.id ASC
			LIMIT 1`,
			category, string(urgency), location, location)
		if err != nil || res != nil {
			return res, err
		}
	}

	// Tier 2: category + urgency, wildcard location.
	res, err := r.matchTier(ctx, q, MatchCategoryUrgency, `
		SELECT r.id, r.department_id, d.name, d.sla_days
		FROM routing_rules r
		JOIN departments d ON d.id = r.department_id
		WHERE r.active = 1 AND d.active = 1
		  AND r.category = ? AND r.urgency = ? AND r.location IS NULL
		ORDER BY r.priority DESC, r.id ASC
		LIMIT 1`,
		category, string(urgency))
	if err != nil || res != nil {
		return res, err
	}

	// Tier 3: category only.
	res, err = r.matchTier(ctx, q, MatchCategory, `
		SELECT r.id, r.department_id, d.name, d.sla_days
		FROM routing_rules r
		JOIN departments d ON d.id = r.department_id
		WHERE r.active = 1 AND d.active = 1
		  AND r.category = ? AND r.urgency IS NULL AND r.location IS NULL
		ORDER BY r.priority DESC, r.id ASC
		LIMIT 1`,
		category)
	if err != nil || res != nil {
		return res, err
	}

	// Tier 4: the generic "other" fallback rule.
	res, err = r.matchTier(ctx, q, MatchFallbackRule, `
		SELECT r.id, r.department_id, d.name, d.sla_days
		FROM routing_rules r
		JOIN departments d ON d.id = r.department_id
		WHERE r.active = 1 AND d.active = 1 AND r.category = ?
		ORDER BY r.priority DESC, r.id ASC
		LIMIT 1`,
		classify.CategoryOther)
	if err != nil || res != nil {
		return res, err
	}

	// Tier 5: the configured default department, no rule involved.
	dept, err := r.departments.GetActiveByName(ctx, q, r.defaultDept)
	if err != nil {
		return nil, err
	}
	if dept != nil {
		return &Resolution{
			DepartmentID:   dept.ID,
			DepartmentName: dept.Name,
			SLADays:        dept.SLADays,
			MatchKind:      MatchDefaultDepartment,
		}, nil
	}

	// Last resort: any active department at all.
	dept, err = r.departments.AnyActive(ctx, q, "")
	if err != nil {
		return nil, err
	}
	if dept != nil {
		return &Resolution{
			DepartmentID:   dept.ID,
			DepartmentName: dept.Name,
			SLADays:        dept.SLADays,
			MatchKind:      MatchAnyDepartment,
		}, nil
	}

	return nil, ErrNoRoutableDepartment
}

func (r *Resolver) matchTier(ctx context.Context, q db.Querier, kind MatchKind, query string, args ...any) (*Resolution, error) {
	var res Resolution
	err := q.QueryRowContext(ctx, query, args...).Scan(
		&res.RuleID, &res.DepartmentID, &res.DepartmentName, &res.SLADays)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("matching %s tier: %w", kind, err)
	}
	res.MatchKind = kind
	return &res, nil
}

// Describe renders a human-readable summary of how a resolution was
// reached, used in API responses and explanation prompts.
func Describe(res *Resolution, category string, urgency classify.Urgency, location string) string {
	switch res.MatchKind {
	case MatchExact:
		return fmt.Sprintf("rule #%d: category %q + urgency %q + location %q -> %s",
			res.RuleID, category, urgency, location, res.DepartmentName)
	case MatchCategoryUrgency:
		return fmt.Sprintf("rule #%d: category %q + urgency %q -> %s",
			res.RuleID, category, urgency, res.DepartmentName)
	case MatchCategory:
		return fmt.Sprintf("rule #%d: category %q -> %s", res.RuleID, category, res.DepartmentName)
	case MatchFallbackRule:
		return fmt.Sprintf("rule #%d: fallback rule for unmatched category -> %s", res.RuleID, res.DepartmentName)
	default:
		return fmt.Sprintf("default routing -> %s", res.DepartmentName)
	}
}
