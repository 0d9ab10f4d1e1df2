package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/cache"
	"github.com/querypilot/engine/pkg/datasource"
)

// ExtractorFactory builds a schema extractor for a connection. Injected so
// tests can substitute a fake datasource.
type ExtractorFactory func(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (datasource.SchemaExtractor, error)

// TableCatalog answers "which tables exist for this connection". The cached
// table-name list is only a latency shortcut; a fresh extraction stays
// authoritative and repopulates the cache.
type TableCatalog interface {
	TableNames(ctx context.Context, conn *datasource.ConnectionConfig) ([]string, error)
}

type tableCatalog struct {
	cache        *cache.Cache
	newExtractor ExtractorFactory
	logger       *zap.Logger
}

// NewTableCatalog creates a catalog over the cache and extractor factory.
func NewTableCatalog(c *cache.Cache, newExtractor ExtractorFactory, logger *zap.Logger) TableCatalog {
	return &tableCatalog{cache: c, newExtractor: newExtractor, logger: logger.Named("catalog")}
}

func (t *tableCatalog) TableNames(ctx context.Context, conn *datasource.ConnectionConfig) ([]string, error) {
	tenantKey := conn.Fingerprint()
	if names, ok := t.cache.GetTableNames(ctx, tenantKey); ok {
		return names, nil
	}

	extractor, err := t.newExtractor(ctx, conn, t.logger)
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}
	defer extractor.Close()

	schema, err := extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract schema: %w", err)
	}

	names := schema.TableNames()
	t.cache.SetTableNames(ctx, tenantKey, names)
	return names, nil
}
