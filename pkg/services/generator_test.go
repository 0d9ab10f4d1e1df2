package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/llm"
)

func TestGenerate_PassesContextAndQuestion(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		assert.Zero(t, temp)
		return "SELECT c.name FROM customers c LIMIT 100", nil
	}

	g := NewSQLGenerator(mock, zap.NewNop())
	sql, err := g.Generate(context.Background(), "customer names", "Table: customers\nColumns: id, name")
	require.NoError(t, err)

	assert.Equal(t, "SELECT c.name FROM customers c LIMIT 100", sql)
	assert.Contains(t, mock.LastPrompt, "Table: customers")
	assert.Contains(t, mock.LastPrompt, "customer names")
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "bare sql untouched",
			raw:      "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "sql fence stripped",
			raw:      "```sql\nSELECT id FROM users\n```",
			expected: "SELECT id FROM users",
		},
		{
			name:     "anonymous fence stripped",
			raw:      "```\nSELECT id FROM users\n```",
			expected: "SELECT id FROM users",
		},
		{
			name:     "prose after closing fence discarded",
			raw:      "```sql\nSELECT id FROM users\n```\nThis query selects ids.",
			expected: "SELECT id FROM users",
		},
		{
			name:     "multiline statement preserved",
			raw:      "```sql\nSELECT id\nFROM users\nWHERE active = true\n```",
			expected: "SELECT id\nFROM users\nWHERE active = true",
		},
		{
			name:     "unterminated fence keeps remainder",
			raw:      "```sql\nSELECT id FROM users",
			expected: "SELECT id FROM users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractSQL(tt.raw))
		})
	}
}
