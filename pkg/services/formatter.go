package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/models"
	"github.com/querypilot/engine/pkg/prompts"
)

// summarySampleRows bounds the row sample included in the summary prompt.
const summarySampleRows = 5

// summaryTemperature keeps summaries flat and factual.
const summaryTemperature = 0.1

// ResultFormatter attaches a one-sentence natural-language summary to a
// query result. Summaries are best-effort; a provider failure falls back
// to a plain row count instead of failing the request.
type ResultFormatter interface {
	Summarize(ctx context.Context, question string, sql string, result *models.QueryResult) string
}

type resultFormatter struct {
	client llm.GenerationClient
	logger *zap.Logger
}

// NewResultFormatter creates a formatter over the generation client. A nil
// client disables model summaries entirely.
func NewResultFormatter(client llm.GenerationClient, logger *zap.Logger) ResultFormatter {
	return &resultFormatter{client: client, logger: logger.Named("formatter")}
}

func (f *resultFormatter) Summarize(ctx context.Context, question, sql string, result *models.QueryResult) string {
	fallback := fmt.Sprintf("Returned %d row(s).", result.RowCount)
	if f.client == nil || result.RowCount == 0 {
		return fallback
	}

	sample := result.Rows
	if len(sample) > summarySampleRows {
		sample = sample[:summarySampleRows]
	}

	prompt := prompts.BuildSummaryPrompt(question, sql, result.Columns, sample)
	raw, err := f.client.GenerateResponse(ctx, prompt, "", summaryTemperature)
	if err != nil {
		f.logger.Debug("summary generation failed", zap.Error(err))
		return fallback
	}

	summary := firstSentence(raw)
	if summary == "" {
		return fallback
	}
	return summary
}

// firstSentence trims a model reply to its first sentence so verbose
// replies cannot leak row data into the summary.
func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if idx := strings.IndexAny(s, "\n"); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}
	if idx := strings.Index(s, ". "); idx >= 0 {
		return s[:idx+1]
	}
	return s
}
