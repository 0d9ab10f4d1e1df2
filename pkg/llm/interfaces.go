// Package llm provides generation and embedding clients for the providers
// the engine can talk to.
package llm

import "context"

// GenerationClient produces a text completion for a prompt. Implementations
// call a remote provider; the pipeline treats them as opaque.
type GenerationClient interface {
	// GenerateResponse returns the assistant message content.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// EmbeddingClient maps texts to fixed-dimension vectors, order-preserving
// and one-to-one. The same provider/model must serve an ingestion run and
// all queries against that run's index.
type EmbeddingClient interface {
	// CreateEmbeddings returns one vector per input, in input order.
	// A provider failure is returned as an error wrapping
	// apperrors.ErrEmbeddingFailed, never as empty or zero vectors.
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Compile-time interface checks.
var (
	_ GenerationClient = (*Client)(nil)
	_ EmbeddingClient  = (*Client)(nil)
	_ GenerationClient = (*AnthropicClient)(nil)
	_ GenerationClient = (*MockClient)(nil)
	_ EmbeddingClient  = (*MockClient)(nil)
)
