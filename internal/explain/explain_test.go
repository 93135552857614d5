package explain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/llm"
	"github.com/civicgrid/grievd/internal/routing"
)

type stubProvider struct {
	content string
	err     error
}

func (s *stubProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

func (s *stubProvider) Name() string { return "stub" }

var testResolution = routing.Resolution{
	DepartmentID:   "d1",
	DepartmentName: "Sanitation",
	SLADays:        2,
	MatchKind:      routing.MatchExact,
}

func TestRoutingExplanationUsesProvider(t *testing.T) {
	e := NewExplainer(&stubProvider{content: "Routed because sewage."}, "m", nil)
	got := e.RoutingExplanation(context.Background(), "overflow", classify.Classification{Category: "sewage", Urgency: classify.UrgencyHigh}, testResolution, time.Now())
	if got != "Routed because sewage." {
		t.Errorf("got %q", got)
	}
}

func TestRoutingExplanationFallsBackOnError(t *testing.T) {
	e := NewExplainer(&stubProvider{err: errors.New("down")}, "m", nil)
	deadline := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	got := e.RoutingExplanation(context.Background(), "overflow",
		classify.Classification{Category: "sewage", Urgency: classify.UrgencyHigh, Location: "Ward 12"}, testResolution, deadline)
	for _, want := range []string{"sewage", "high", "Ward 12", "Sanitation", "2025-06-12"} {
		if !strings.Contains(got, want) {
			t.Errorf("template missing %q: %q", want, got)
		}
	}
}

func TestNilProviderIsTemplateOnly(t *testing.T) {
	e := NewExplainer(nil, "", nil)
	got := e.RoutingExplanation(context.Background(), "x", classify.Classification{Category: "road", Urgency: classify.UrgencyLow}, testResolution, time.Now())
	if got == "" {
		t.Fatal("expected template output")
	}
}

func TestEscalationJustificationTemplate(t *testing.T) {
	e := NewExplainer(nil, "", nil)
	deadline := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := deadline.AddDate(0, 0, 3)
	got := e.EscalationJustification(context.Background(), "overflow", "sewage", "Sanitation", "Municipal Commissioner Office", deadline, now)
	for _, want := range []string{"sewage", "Sanitation", "3 day(s) overdue", "Municipal Commissioner Office"} {
		if !strings.Contains(got, want) {
			t.Errorf("justification missing %q: %q", want, got)
		}
	}
}

func TestEscalationBlankProviderResponseFallsBack(t *testing.T) {
	e := NewExplainer(&stubProvider{content: "   "}, "m", nil)
	got := e.EscalationJustification(context.Background(), "x", "road", "Roads", "Overflow", time.Now().Add(-48*time.Hour), time.Now())
	if !strings.Contains(got, "escalated") {
		t.Errorf("expected template fallback, got %q", got)
	}
}

func TestReviewFlagReason(t *testing.T) {
	got := ReviewFlagReason(classify.Classification{Category: "other", Urgency: classify.UrgencyMedium, Confidence: 0.42}, 0.6)
	for _, want := range []string{"0.42", "0.60", "other", "medium"} {
		if !strings.Contains(got, want) {
			t.Errorf("reason missing %q: %q", want, got)
		}
	}
}
