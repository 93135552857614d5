package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/civicgrid/grievd/internal/llm"
)

const systemPrompt = `You are an expert civic complaint classification system for a municipal corporation.
Your task is to analyze citizen complaints and extract structured information.

Available categories: %s

Urgency levels:
- low: Minor inconvenience, can be addressed within normal SLA
- medium: Causes moderate disruption, needs attention within a few days
- high: Significant issue affecting daily life, needs priority attention
- critical: Public safety hazard, health emergency, or widespread impact requiring immediate action

Guidelines:
1. Extract the most specific category that matches the complaint
2. Identify any location mentioned (ward, area, street, landmark)
3. Assess urgency based on impact, safety concerns, and number of people affected
4. Summarize the core intent/request in a brief phrase
5. Provide a confidence score (0.0 to 1.0) for your classification

If the complaint is unclear, contains multiple issues, or you are unsure,
give a lower confidence score.

Respond ONLY with valid JSON in this form:
{"category": "sewage", "urgency": "high", "location": "MG Road", "intent": "Fix sewage overflow", "confidence": 0.85, "reasoning": "Clear sewage issue mentioned"}`

// Classifier turns free-text complaints into validated Classifications
// using an LLM provider. Provider failures are absorbed: Classify always
// returns a usable value, substituting the zero-confidence fallback so
// the complaint lands in manual review instead of being lost.
type Classifier struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

// NewClassifier creates a Classifier backed by the given provider. A
// nil provider sends every complaint to manual review via the fallback.
func NewClassifier(provider llm.Provider, model string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{provider: provider, model: model, logger: logger}
}

// Classify analyzes a complaint text and returns a normalized
// classification. It never returns an error; on provider failure the
// fallback classification is returned instead.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	if c.provider == nil {
		return Fallback()
	}
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPrompt, strings.Join(Categories, ", "))},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Analyze and classify this citizen complaint:\n\n%q\n\nRespond with JSON only.", text)},
		},
		MaxTokens:   512,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		c.logger.Error("classification failed, using fallback", "error", err)
		return Fallback()
	}

	var raw Classification
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &raw); err != nil {
		c.logger.Error("unparseable classification response, using fallback",
			"error", err, "content", resp.Content)
		return Fallback()
	}

	return Normalize(raw)
}

// extractJSON strips markdown code fences some models wrap around JSON
// output even in JSON mode.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
