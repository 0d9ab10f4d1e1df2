package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/apperrors"
	"github.com/querypilot/engine/pkg/datasource"
	"github.com/querypilot/engine/pkg/models"
)

// contextPreviewLimit bounds the context echoed back in results for
// observability; the full context still went to the generator.
const contextPreviewLimit = 500

// defaultTopK is the retrieval depth for the single-query path.
const defaultTopK = 10

// QueryPipeline turns a question into a validated statement, or into one
// statement per table when the question asks for tables separately.
type QueryPipeline interface {
	Run(ctx context.Context, conn *datasource.ConnectionConfig, question string) (*models.GenerateResult, error)
}

type queryPipeline struct {
	intents   IntentService
	retriever Retriever
	generator SQLGenerator
	validator SQLValidator
	catalog   TableCatalog
	maxRows   int
	logger    *zap.Logger
}

// NewQueryPipeline wires the pipeline stages together.
func NewQueryPipeline(
	intents IntentService,
	retriever Retriever,
	generator SQLGenerator,
	validator SQLValidator,
	catalog TableCatalog,
	maxRows int,
	logger *zap.Logger,
) QueryPipeline {
	return &queryPipeline{
		intents:   intents,
		retriever: retriever,
		generator: generator,
		validator: validator,
		catalog:   catalog,
		maxRows:   maxRows,
		logger:    logger.Named("pipeline"),
	}
}

func (p *queryPipeline) Run(ctx context.Context, conn *datasource.ConnectionConfig, question string) (*models.GenerateResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, apperrors.ErrEmptyQuestion
	}

	intent, err := p.intents.Understand(ctx, question)
	if err != nil {
		return nil, err
	}

	if wantsTablesSeparately(question) {
		statements, err := p.perTableStatements(ctx, conn)
		if err != nil {
			return nil, err
		}
		if len(statements) > 0 {
			p.logger.Info("fan-out mode",
				zap.String("tenant", conn.Fingerprint()),
				zap.Int("tables", len(statements)))
			return &models.GenerateResult{
				SQL:     strings.Join(statements, ";\n\n"),
				Valid:   true,
				SQLList: statements,
				Intent:  intent,
			}, nil
		}
	}

	retrievalQuery := intent.Summary + " " + question
	schemaContext, err := p.retriever.ContextForPrompt(ctx, conn.Fingerprint(), retrievalQuery, defaultTopK)
	if err != nil {
		return nil, err
	}

	sql, err := p.generator.Generate(ctx, question, schemaContext)
	if err != nil {
		return nil, err
	}
	sql = injectLimit(sql, p.maxRows)

	valid, reason, err := p.validator.Validate(ctx, conn, sql)
	if err != nil {
		return nil, err
	}

	return &models.GenerateResult{
		SQL:         sql,
		Valid:       valid,
		Error:       reason,
		Intent:      intent,
		ContextUsed: previewContext(schemaContext),
	}, nil
}

// perTableStatements synthesizes one bounded SELECT per table. No
// retrieval and no generation call; the table list comes from the cache
// when warm, otherwise from a fresh extraction.
func (p *queryPipeline) perTableStatements(ctx context.Context, conn *datasource.ConnectionConfig) ([]string, error) {
	names, err := p.catalog.TableNames(ctx, conn)
	if err != nil {
		return nil, err
	}

	statements := make([]string, 0, len(names))
	for _, name := range names {
		statements = append(statements,
			fmt.Sprintf("SELECT * FROM %s LIMIT %d", conn.QuoteIdentifier(name), p.maxRows))
	}
	return statements, nil
}

// wantsTablesSeparately is the fan-out trigger: one "separately" family
// signal and one "tables" family signal are both required. It is a coarse
// lexical heuristic, kept as-is.
func wantsTablesSeparately(question string) bool {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return false
	}

	separately := strings.Contains(q, "separately") ||
		strings.Contains(q, "each table") ||
		strings.Contains(q, "per table")
	noJoins := strings.Contains(q, "no join") ||
		strings.Contains(q, "without join") ||
		strings.Contains(q, "don't use join") ||
		strings.Contains(q, "dont use join")
	allTables := strings.Contains(q, "all table") ||
		strings.Contains(q, "list table") ||
		strings.Contains(q, "every table") ||
		strings.Contains(q, "each table")

	return (separately || noJoins) && (allTables || strings.Contains(q, "table"))
}

// injectLimit appends a bounding LIMIT when the statement is a SELECT with
// no LIMIT of its own. Already-limited statements pass through unchanged,
// so re-running injection never appends a second clause.
func injectLimit(sql string, maxRows int) string {
	if maxRows <= 0 {
		return sql
	}
	upper := strings.ToUpper(sql)
	if strings.Contains(upper, "LIMIT") || !strings.Contains(upper, "SELECT") {
		return sql
	}

	sql = strings.TrimRight(sql, " \t\n\r")
	if strings.HasSuffix(sql, ";") {
		trimmed := strings.TrimRight(strings.TrimSuffix(sql, ";"), " \t\n\r")
		return fmt.Sprintf("%s LIMIT %d;", trimmed, maxRows)
	}
	return fmt.Sprintf("%s LIMIT %d", sql, maxRows)
}

func previewContext(schemaContext string) string {
	if len(schemaContext) > contextPreviewLimit {
		return schemaContext[:contextPreviewLimit] + "..."
	}
	return schemaContext
}
