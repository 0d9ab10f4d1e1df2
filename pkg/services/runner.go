package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/datasource"
	"github.com/querypilot/engine/pkg/logging"
	"github.com/querypilot/engine/pkg/models"
)

// ExecutorFactory builds a query executor for a connection. Injected so
// tests can substitute a fake datasource.
type ExecutorFactory func(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (datasource.QueryExecutor, error)

// QueryRunner executes pipeline output against the source database.
type QueryRunner interface {
	// RunOne executes a single validated statement.
	RunOne(ctx context.Context, conn *datasource.ConnectionConfig, sql string) (*models.QueryResult, error)

	// RunPerTable executes each fan-out statement independently. A statement
	// that fails validation or execution records its error in place without
	// aborting the remaining tables.
	RunPerTable(ctx context.Context, conn *datasource.ConnectionConfig, statements []string) ([]models.TableResult, error)
}

type queryRunner struct {
	newExecutor ExecutorFactory
	validator   SQLValidator
	logger      *zap.Logger
}

// NewQueryRunner creates a runner over the executor factory. The validator
// re-checks each fan-out statement at execution time.
func NewQueryRunner(newExecutor ExecutorFactory, validator SQLValidator, logger *zap.Logger) QueryRunner {
	return &queryRunner{
		newExecutor: newExecutor,
		validator:   validator,
		logger:      logger.Named("runner"),
	}
}

func (q *queryRunner) RunOne(ctx context.Context, conn *datasource.ConnectionConfig, sql string) (*models.QueryResult, error) {
	executor, err := q.newExecutor(ctx, conn, q.logger)
	if err != nil {
		return nil, fmt.Errorf("create executor: %w", err)
	}
	defer executor.Close()

	columns, rows, err := executor.Execute(ctx, sql)
	if err != nil {
		q.logger.Warn("query execution failed",
			zap.String("query", logging.SanitizeQuery(sql)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("execute query: %w", err)
	}

	return &models.QueryResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}

func (q *queryRunner) RunPerTable(ctx context.Context, conn *datasource.ConnectionConfig, statements []string) ([]models.TableResult, error) {
	executor, err := q.newExecutor(ctx, conn, q.logger)
	if err != nil {
		return nil, fmt.Errorf("create executor: %w", err)
	}
	defer executor.Close()

	results := make([]models.TableResult, 0, len(statements))
	for _, sql := range statements {
		results = append(results, q.runTable(ctx, conn, executor, sql))
	}
	return results, nil
}

func (q *queryRunner) runTable(ctx context.Context, conn *datasource.ConnectionConfig, executor datasource.QueryExecutor, sql string) models.TableResult {
	result := models.TableResult{SQL: sql}

	valid, reason, err := q.validator.Validate(ctx, conn, sql)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if !valid {
		result.Error = reason
		return result
	}

	columns, rows, err := executor.Execute(ctx, sql)
	if err != nil {
		q.logger.Warn("table query failed",
			zap.String("query", logging.SanitizeQuery(sql)),
			zap.String("error", logging.SanitizeError(err)))
		result.Error = err.Error()
		return result
	}

	result.Columns = columns
	result.Rows = rows
	result.RowCount = len(rows)
	return result
}
