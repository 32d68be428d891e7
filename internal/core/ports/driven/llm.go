// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides language model operations for answering and grading.
//
// Implementations may include:
//   - OpenAI and OpenAI-compatible endpoints (SiliconFlow, vLLM, LM Studio)
//   - Anthropic (Claude)
//   - Ollama (local models)
//   - Google Gemini
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream conducts a multi-turn conversation, calling onDelta for each
	// text increment in arrival order. An error from onDelta aborts the stream
	// and is returned unchanged.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, onDelta func(string) error) error

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate. 0 uses the provider default.
	MaxTokens int

	// Temperature controls randomness. Nil uses the service default;
	// a pointer is needed so that 0 can be requested explicitly.
	Temperature *float64
}

// Temperature returns a pointer suitable for ChatOptions.Temperature.
func Temperature(t float64) *float64 {
	return &t
}
