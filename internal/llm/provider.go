package llm

import "context"

// Message is one chat message in a completion request.
type Message struct {
	Role    string
	Content string
}

// Request contains text-completion parameters.
type Request struct {
	System      string
	Messages    []Message
	Temperature float32
}

// Provider defines the interface for generative-model providers.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete returns a text completion for the request
	Complete(ctx context.Context, req Request) (string, error)

	// Embed returns an embedding vector for the text
	Embed(ctx context.Context, text string) ([]float32, error)
}
