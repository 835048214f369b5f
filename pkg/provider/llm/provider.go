// Package llm defines the Provider interface for Large Language Model
// backends.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI, Anthropic
// via any-llm, or a local Ollama instance) and exposes a uniform completion
// interface so the interview responder stays decoupled from any specific SDK.
//
// Implementations must be safe for concurrent use. Providers perform exactly
// one attempt per Complete call; retry policy belongs to the caller.
package llm

import "context"

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation history.
type Message struct {
	// Role is one of RoleSystem, RoleUser, or RoleAssistant.
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and differ between providers for the same text.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs for one response.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before the
	// history. Providers that lack a dedicated system channel prepend it as
	// a "system"-role message.
	SystemPrompt string

	// Messages is the ordered conversation history; the last entry is
	// typically the user utterance that drives the response.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response. Any
	// transport or HTTP-level failure is returned as an error; the provider
	// performs no retry of its own.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider's stable identifier (e.g., "openai",
	// "ollama").
	Name() string

	// Configured reports whether the backend's credentials and endpoint are
	// present.
	Configured() bool

	// HistoryLimit returns how many trailing conversation messages this
	// backend should receive. Local backends with small context windows
	// report a lower cap than hosted ones.
	HistoryLimit() int
}
