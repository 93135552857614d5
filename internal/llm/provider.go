package llm

import "context"

// Provider is a hosted or local completion backend. Grievd uses it for
// complaint classification and for routing/escalation narratives; both
// callers treat failures as recoverable and fall back to deterministic
// behavior, so implementations should return errors rather than retry.
type Provider interface {
	// Complete sends one completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the backend for logs.
	Name() string
}
