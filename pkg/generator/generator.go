package generator

import "context"

// Message is one entry of the conversation handed to the generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Reply is the decoded generator output. When the model returned the
// structured payload, Structured is true, Text holds the user-facing
// message and AgentTrace the agent communication block; otherwise Text is
// the raw model output verbatim.
type Reply struct {
	Text       string
	Structured bool
	AgentTrace map[string]interface{}
}

// Generator produces the assistant reply for a conversation. It may be slow
// and it may fail; callers must not hold session locks across a call.
type Generator interface {
	Generate(ctx context.Context, history []Message) (*Reply, error)
}
