package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/models"
)

func sampleResult(rows int) *models.QueryResult {
	r := &models.QueryResult{Columns: []string{"id", "name"}, RowCount: rows}
	for i := 0; i < rows; i++ {
		r.Rows = append(r.Rows, []any{i, "row"})
	}
	return r
}

func TestSummarize_UsesModelSentence(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "Returned 3 active customers.", nil
	}
	f := NewResultFormatter(mock, zap.NewNop())

	summary := f.Summarize(context.Background(), "who is active?", "SELECT ...", sampleResult(3))
	assert.Equal(t, "Returned 3 active customers.", summary)
}

func TestSummarize_TrimsVerboseReplyToFirstSentence(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "Query returned 4 rows. Here they are:\n1. Alice\n2. Bob", nil
	}
	f := NewResultFormatter(mock, zap.NewNop())

	summary := f.Summarize(context.Background(), "list people", "SELECT ...", sampleResult(4))
	assert.Equal(t, "Query returned 4 rows.", summary)
}

func TestSummarize_ProviderErrorFallsBackToRowCount(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "", errors.New("rate limited")
	}
	f := NewResultFormatter(mock, zap.NewNop())

	summary := f.Summarize(context.Background(), "q", "SELECT ...", sampleResult(7))
	assert.Equal(t, "Returned 7 row(s).", summary)
}

func TestSummarize_EmptyResultSkipsModelCall(t *testing.T) {
	mock := llm.NewMockClient()
	f := NewResultFormatter(mock, zap.NewNop())

	summary := f.Summarize(context.Background(), "q", "SELECT ...", sampleResult(0))
	assert.Equal(t, "Returned 0 row(s).", summary)
	assert.Zero(t, mock.GenerateResponseCalls)
}

func TestSummarize_NilClientUsesFallback(t *testing.T) {
	f := NewResultFormatter(nil, zap.NewNop())

	summary := f.Summarize(context.Background(), "q", "SELECT ...", sampleResult(2))
	assert.Equal(t, "Returned 2 row(s).", summary)
}

func TestSummarize_SampleIsBounded(t *testing.T) {
	mock := llm.NewMockClient()
	var captured string
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		captured = prompt
		return "Returned 20 rows.", nil
	}
	f := NewResultFormatter(mock, zap.NewNop())

	f.Summarize(context.Background(), "q", "SELECT ...", sampleResult(20))
	assert.Contains(t, captured, "first 5 only")
}
