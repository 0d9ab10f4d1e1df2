package datasource

import (
	"context"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/apperrors"
	"github.com/querypilot/engine/pkg/models"
)

// SchemaExtractor introspects a database and produces a schema snapshot.
// Each implementation owns its connection and must be closed when done.
type SchemaExtractor interface {
	// Extract enumerates all visible tables with columns, primary keys,
	// foreign keys, and a best-effort row count. Connection or catalog
	// failures are fatal; per-table row-count failures are not.
	Extract(ctx context.Context) (*models.SchemaInfo, error)

	// Close releases the database connection.
	Close() error
}

// QueryExecutor runs a single statement and returns its rows.
type QueryExecutor interface {
	// Execute runs the statement and returns column order plus row values.
	Execute(ctx context.Context, sql string) ([]string, [][]any, error)

	// Close releases the database connection.
	Close() error
}

// NewSchemaExtractor returns the extractor for the connection's family.
func NewSchemaExtractor(ctx context.Context, cfg *ConnectionConfig, logger *zap.Logger) (SchemaExtractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Family {
	case FamilyPostgres:
		return newPostgresExtractor(ctx, cfg, logger)
	case FamilyMySQL:
		return newMySQLExtractor(cfg, logger)
	default:
		return nil, apperrors.ErrUnsupportedFamily
	}
}

// NewQueryExecutor returns the executor for the connection's family.
func NewQueryExecutor(ctx context.Context, cfg *ConnectionConfig, logger *zap.Logger) (QueryExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Family {
	case FamilyPostgres:
		return newPostgresExecutor(ctx, cfg, logger)
	case FamilyMySQL:
		return newMySQLExecutor(cfg, logger)
	default:
		return nil, apperrors.ErrUnsupportedFamily
	}
}
