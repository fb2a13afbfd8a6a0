// Package llm defines the Provider interface for text generation
// backends used to produce conversational replies.
//
// The talk loop makes exactly one completion call per turn, with the
// full prompt assembled up front. Streaming is deliberately absent: the
// reply must be complete before synthesis starts, so there is nothing to
// pipeline.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in the conversation history.
type Message struct {
	// Role is [RoleUser] or [RoleAssistant].
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything needed for one completion call.
type CompletionRequest struct {
	// SystemPrompt sets the model's instructions and persona.
	SystemPrompt string

	// Messages is the conversation history, oldest first. The last
	// entry is the current user question.
	Messages []Message

	// MaxTokens bounds the reply length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls sampling randomness. Zero uses the provider
	// default.
	Temperature float64
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompletionResponse is the result of one completion call.
type CompletionResponse struct {
	// Content is the generated reply text.
	Content string

	// Usage reports token counts when the provider supplies them.
	Usage Usage
}

// Provider is the abstraction over any text generation backend.
//
// Complete performs a single completion. There is no local fallback: a
// failed service call surfaces as a *types.ServiceError and the caller
// decides what to do with the turn.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
