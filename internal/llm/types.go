package llm

// Role labels one side of a prompt exchange. Grievd's exchanges are
// single-turn: a system prompt plus one user message carrying the
// complaint.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one prompt message.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest asks a provider for one short completion. The
// classifier sets JSONMode and temperature zero to get a structured
// classification; the explainer leaves JSONMode off and accepts prose.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the provider's answer plus usage accounting.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
