// Package llm adapts the supported model backends to one request shape.
//
// Every adapter takes a Prompt and returns plain text. Failures are reported
// as *apperr.ProviderError values whose Kind drives retry decisions and the
// user-facing mapping in package chat.
package llm

import (
	"context"
)

// DefaultMaxTokens caps replies when a Prompt does not set MaxTokens.
const DefaultMaxTokens = 500

// Role is the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the backend-neutral request.
type Prompt struct {
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

func (p Prompt) maxTokens() int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return DefaultMaxTokens
}

// Sender performs a single request attempt.
type Sender interface {
	Send(ctx context.Context, p Prompt) (string, error)
}

// Provider is a configured model backend.
type Provider interface {
	Sender
	// SendWithRetry makes up to maxRetries attempts with exponential backoff.
	SendWithRetry(ctx context.Context, p Prompt, maxRetries int) (string, error)
	TestConnection(ctx context.Context) (bool, error)
	CalculateCost(inputTokens, outputTokens int) Cost
	ID() ProviderID
	Model() string
}
