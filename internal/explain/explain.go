package explain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/llm"
	"github.com/civicgrid/grievd/internal/routing"
)

// Explainer produces human-readable narratives for routing and
// escalation decisions. When a provider is configured it asks the LLM
// for prose; on any failure, or with a nil provider, it falls back to a
// deterministic template so callers always get usable text and never an
// error. Explanations are generated outside transactions.
type Explainer struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

// NewExplainer creates an Explainer. A nil provider is valid and yields
// template-only output.
func NewExplainer(provider llm.Provider, model string, logger *slog.Logger) *Explainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Explainer{provider: provider, model: model, logger: logger}
}

const routingSystemPrompt = `You are a civic grievance system writing short, citizen-facing explanations.
Given a complaint classification and the routing decision, explain in 2-3 plain
sentences why the complaint was sent to that department and what the deadline
means. No jargon, no JSON, no markdown.`

// RoutingExplanation explains why a complaint was routed the way it
// was. It never fails.
func (e *Explainer) RoutingExplanation(ctx context.Context, text string, c classify.Classification, res routing.Resolution, deadline time.Time) string {
	fallback := routingTemplate(c, res, deadline)
	if e.provider == nil {
		return fallback
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: routingSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf(
				"Complaint: %q\nCategory: %s\nUrgency: %s\nLocation: %s\nRouted to: %s (%s match)\nResolution deadline: %s",
				text, c.Category, c.Urgency, c.Location,
				res.DepartmentName, res.MatchKind, deadline.Format("2006-01-02"))},
		},
		MaxTokens:   256,
		Temperature: 0.3,
	})
	if err != nil {
		e.logger.Warn("routing explanation failed, using template", "error", err)
		return fallback
	}
	if s := strings.TrimSpace(resp.Content); s != "" {
		return s
	}
	return fallback
}

const escalationSystemPrompt = `You are a civic grievance system writing an internal escalation note.
Given an overdue complaint, write 2-3 sentences justifying the escalation for
the receiving department. Be factual and specific. No JSON, no markdown.`

// EscalationJustification explains why an overdue complaint is being
// escalated. It never fails.
func (e *Explainer) EscalationJustification(ctx context.Context, text, category string, fromDept, toDept string, deadline, now time.Time) string {
	fallback := escalationTemplate(category, fromDept, toDept, deadline, now)
	if e.provider == nil {
		return fallback
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: escalationSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf(
				"Complaint: %q\nCategory: %s\nOriginal department: %s\nEscalating to: %s\nDeadline was: %s\nNow: %s",
				text, category, fromDept, toDept,
				deadline.Format("2006-01-02"), now.Format("2006-01-02"))},
		},
		MaxTokens:   256,
		Temperature: 0.3,
	})
	if err != nil {
		e.logger.Warn("escalation justification failed, using template", "error", err)
		return fallback
	}
	if s := strings.TrimSpace(resp.Content); s != "" {
		return s
	}
	return fallback
}

func routingTemplate(c classify.Classification, res routing.Resolution, deadline time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This complaint was classified as a %s issue with %s urgency", c.Category, c.Urgency)
	if c.Location != "" {
		fmt.Fprintf(&b, " in %s", c.Location)
	}
	switch res.MatchKind {
	case routing.MatchExact, routing.MatchCategoryUrgency, routing.MatchCategory:
		fmt.Fprintf(&b, " and assigned to %s, which handles this type of issue.", res.DepartmentName)
	case routing.MatchFallbackRule:
		fmt.Fprintf(&b, " and assigned to %s, the department for uncategorized issues.", res.DepartmentName)
	default:
		fmt.Fprintf(&b, " and assigned to %s because no specific routing rule applied.", res.DepartmentName)
	}
	fmt.Fprintf(&b, " The resolution deadline is %s.", deadline.Format("2006-01-02"))
	return b.String()
}

func escalationTemplate(category, fromDept, toDept string, deadline, now time.Time) string {
	overdue := int(now.Sub(deadline).Hours() / 24)
	if overdue < 1 {
		overdue = 1
	}
	return fmt.Sprintf(
		"This %s complaint assigned to %s breached its resolution deadline of %s and is approximately %d day(s) overdue. It is escalated to %s for priority handling.",
		category, fromDept, deadline.Format("2006-01-02"), overdue, toDept)
}

// ReviewFlagReason states why a classification was queued for manual
// review. It is a pure template so it can be produced inside the
// complaint intake transaction.
func ReviewFlagReason(c classify.Classification, threshold float64) string {
	return fmt.Sprintf(
		"Classification confidence %.2f is below the review threshold %.2f (category %s, urgency %s).",
		c.Confidence, threshold, c.Category, c.Urgency)
}
