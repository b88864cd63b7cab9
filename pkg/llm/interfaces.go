// Package llm provides the table-description model clients: OpenAI-compatible
// endpoints and Anthropic, plus embeddings for marketplace matching.
package llm

import (
	"context"
)

// GenerateResponseResult is a completion and its token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient generates single-shot completions. No conversation state is kept
// between calls.
type LLMClient interface {
	// GenerateResponse generates a completion for prompt under systemMessage.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// EmbeddingClient turns text into vectors.
type EmbeddingClient interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs.
	CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error)
}

// Compile-time checks.
var (
	_ LLMClient       = (*Client)(nil)
	_ EmbeddingClient = (*Client)(nil)
	_ LLMClient       = (*AnthropicClient)(nil)
)
