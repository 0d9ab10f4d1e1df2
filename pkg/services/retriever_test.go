package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/apperrors"
	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/vector"
)

func seedIndex(t *testing.T, registry *vector.Registry, tenantKey string) {
	t.Helper()
	err := registry.Upsert(tenantKey,
		[]string{"c1", "c2", "c3"},
		[][]float32{{1, 0}, {0, 1}, {1, 0}},
		[]map[string]string{
			{"text": "Table: customers\nColumns: id (integer), name (varchar)", "table_name": "customers", "chunk_kind": "table"},
			{"text": "Table: orders\nColumns: id (integer), amount (numeric)", "table_name": "orders", "chunk_kind": "table"},
			// Same text as c1, different id: must be deduplicated in context.
			{"text": "Table: customers\nColumns: id (integer), name (varchar)", "table_name": "customers", "chunk_kind": "table"},
		})
	require.NoError(t, err)
}

func unitEmbedder(v []float32) *llm.MockClient {
	mock := llm.NewMockClient()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string) ([][]float32, error) {
		out := make([][]float32, len(inputs))
		for i := range inputs {
			out[i] = v
		}
		return out, nil
	}
	return mock
}

func TestRetrieve_ReturnsChunksWithMetadata(t *testing.T) {
	registry := vector.NewRegistry()
	seedIndex(t, registry, "tenant-a")

	r := NewRetriever(unitEmbedder([]float32{1, 0}), registry, zap.NewNop())
	chunks, err := r.Retrieve(context.Background(), "tenant-a", "customer names", 10)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "customers", chunks[0].TableName)
	assert.Contains(t, chunks[0].Text, "customers")
	assert.Equal(t, "table", string(chunks[0].Kind))
	assert.Greater(t, chunks[0].Score, chunks[2].Score)
}

func TestContextForPrompt_DeduplicatesByExactText(t *testing.T) {
	registry := vector.NewRegistry()
	seedIndex(t, registry, "tenant-a")

	r := NewRetriever(unitEmbedder([]float32{1, 0}), registry, zap.NewNop())
	context_, err := r.ContextForPrompt(context.Background(), "tenant-a", "customer names", 10)
	require.NoError(t, err)

	// c1 and c3 share text; only one copy plus the orders chunk survives.
	assert.Equal(t, 1, strings.Count(context_, "Table: customers"))
	assert.Equal(t, 1, strings.Count(context_, "Table: orders"))
	assert.Contains(t, context_, "---")
}

func TestContextForPrompt_EmptyIndexReturnsSentinel(t *testing.T) {
	r := NewRetriever(unitEmbedder([]float32{1, 0}), vector.NewRegistry(), zap.NewNop())

	context_, err := r.ContextForPrompt(context.Background(), "tenant-none", "anything", 10)
	require.NoError(t, err)
	assert.Equal(t, NoContextSentinel, context_)
}

func TestRetrieve_EmbeddingFailureAborts(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string) ([][]float32, error) {
		return nil, apperrors.ErrEmbeddingFailed
	}

	r := NewRetriever(mock, vector.NewRegistry(), zap.NewNop())
	_, err := r.Retrieve(context.Background(), "tenant-a", "q", 10)
	require.ErrorIs(t, err, apperrors.ErrEmbeddingFailed)
}
