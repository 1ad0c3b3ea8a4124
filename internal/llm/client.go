// Package llm provides the generative-completion client used as the
// relevance judge for the Paper Recommendation Service.
//
// The judge accepts role-tagged messages and a max-output-token bound and
// returns free text which callers decode as JSON after stripping optional
// markdown fences (see jsonx.go for the two-stage decode).
//
// Example usage:
//
//	client := llm.NewGroqClient(cfg, 0.7, 30*time.Second, 2)
//	resp, err := client.Complete(ctx, llm.Request{
//		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
//		MaxTokens: 2048,
//	})
package llm

import "context"

// Message roles understood by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request contains the parameters for one completion call.
type Request struct {
	// Messages is the ordered conversation to complete.
	Messages []Message

	// MaxTokens bounds the output length. Zero uses the provider default.
	MaxTokens int
}

// Usage contains token accounting for a completion call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the result of a completion call.
type Response struct {
	// Content is the raw completion text. Callers are responsible for
	// decoding it (the judge is instructed to return JSON but may wrap it
	// in markdown fences).
	Content string

	// Model is the model that produced the completion.
	Model string

	// Usage is the token accounting reported by the provider.
	Usage Usage
}

// Client is the generative-completion collaborator.
//
// Implementations should respect context cancellation, retry transient
// provider errors, and return *APIError for provider failures.
type Client interface {
	// Complete sends the messages to the provider and returns the
	// completion text.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Provider returns the name of the LLM provider (e.g., "groq").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}
