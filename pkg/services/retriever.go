package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/models"
	"github.com/querypilot/engine/pkg/vector"
)

// NoContextSentinel is returned when retrieval produced nothing usable.
const NoContextSentinel = "No schema context retrieved."

// contextDelimiter separates deduplicated chunks in the prompt context.
const contextDelimiter = "\n\n---\n\n"

// RetrievedChunk is one schema chunk returned for a query.
type RetrievedChunk struct {
	ID        string
	Score     float64
	Text      string
	TableName string
	Kind      models.ChunkKind
}

// Retriever fetches schema context for a question via similarity search.
type Retriever interface {
	// Retrieve embeds the query and returns up to topK matching chunks.
	Retrieve(ctx context.Context, tenantKey, query string, topK int) ([]RetrievedChunk, error)

	// ContextForPrompt concatenates the deduplicated retrieved chunk texts
	// for use as generation context, or NoContextSentinel when empty.
	ContextForPrompt(ctx context.Context, tenantKey, query string, topK int) (string, error)
}

type retriever struct {
	embedder llm.EmbeddingClient
	registry *vector.Registry
	logger   *zap.Logger
}

// NewRetriever creates a retriever over the embedding client and index.
func NewRetriever(embedder llm.EmbeddingClient, registry *vector.Registry, logger *zap.Logger) Retriever {
	return &retriever{embedder: embedder, registry: registry, logger: logger.Named("retriever")}
}

func (r *retriever) Retrieve(ctx context.Context, tenantKey, query string, topK int) ([]RetrievedChunk, error) {
	vectors, err := r.embedder.CreateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}

	matches, err := r.registry.Query(tenantKey, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	chunks := make([]RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, RetrievedChunk{
			ID:        m.ID,
			Score:     m.Score,
			Text:      m.Metadata["text"],
			TableName: m.Metadata["table_name"],
			Kind:      models.ChunkKind(m.Metadata["chunk_kind"]),
		})
	}

	r.logger.Debug("retrieved schema chunks",
		zap.String("tenant", tenantKey),
		zap.Int("matches", len(chunks)))
	return chunks, nil
}

func (r *retriever) ContextForPrompt(ctx context.Context, tenantKey, query string, topK int) (string, error) {
	chunks, err := r.Retrieve(ctx, tenantKey, query, topK)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool)
	var parts []string
	for _, c := range chunks {
		if c.Text == "" || seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		parts = append(parts, c.Text)
	}

	if len(parts) == 0 {
		return NoContextSentinel, nil
	}
	return strings.Join(parts, contextDelimiter), nil
}
