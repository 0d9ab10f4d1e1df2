package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/prompts"
)

// SQLGenerator produces one bare SQL statement from a question and
// retrieved schema context. It does not validate; validation is a
// mandatory downstream step.
type SQLGenerator interface {
	Generate(ctx context.Context, question, schemaContext string) (string, error)
}

type sqlGenerator struct {
	client llm.GenerationClient
	logger *zap.Logger
}

// NewSQLGenerator creates a generator over the generation client.
func NewSQLGenerator(client llm.GenerationClient, logger *zap.Logger) SQLGenerator {
	return &sqlGenerator{client: client, logger: logger.Named("generator")}
}

// Generate calls the provider at zero temperature for determinism and
// strips any markdown code fence from the response.
func (g *sqlGenerator) Generate(ctx context.Context, question, schemaContext string) (string, error) {
	prompt := prompts.BuildSQLPrompt(question, schemaContext)
	raw, err := g.client.GenerateResponse(ctx, prompt, "", 0)
	if err != nil {
		return "", fmt.Errorf("sql generation: %w", err)
	}

	sql := extractSQL(raw)
	g.logger.Debug("generated sql", zap.Int("len", len(sql)))
	return sql, nil
}

// extractSQL removes a leading markdown code fence if present: everything
// before the fence-opening line and after the fence-closing line is
// discarded.
func extractSQL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	lines := strings.Split(raw, "\n")
	start := 0
	if strings.HasPrefix(lines[0], "```") {
		start = 1
	}
	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}
