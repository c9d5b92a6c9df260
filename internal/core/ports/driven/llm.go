package driven

import "context"

// CompletionService produces language model completions for composed prompts.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini, gpt-4o)
//   - Compatible chat-completion APIs
type CompletionService interface {
	// Complete invokes the model with the given messages and returns the
	// generated text plus token usage when the provider reports it.
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (*CompletionResult, error)

	// ModelName returns the name of the model being used.
	ModelName() string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// CompletionOptions configures text generation behaviour.
type CompletionOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// CompletionResult is a generated completion with optional usage stats.
type CompletionResult struct {
	Text  string
	Usage *TokenUsage
}

// TokenUsage reports token consumption for one completion call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
