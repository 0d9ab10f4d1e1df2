package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/cache"
	"github.com/querypilot/engine/pkg/datasource"
	"github.com/querypilot/engine/pkg/models"
)

// mockIngestion satisfies services.SchemaIngestion with function fields.
type mockIngestion struct {
	IngestFunc      func(ctx context.Context, conn *datasource.ConnectionConfig) (*models.IngestResult, error)
	IngestAsyncFunc func(conn *datasource.ConnectionConfig, jobID string)
	IngestCalls     int
}

func (m *mockIngestion) Ingest(ctx context.Context, conn *datasource.ConnectionConfig) (*models.IngestResult, error) {
	m.IngestCalls++
	if m.IngestFunc != nil {
		return m.IngestFunc(ctx, conn)
	}
	return &models.IngestResult{}, nil
}

func (m *mockIngestion) IngestAsync(conn *datasource.ConnectionConfig, jobID string) {
	if m.IngestAsyncFunc != nil {
		m.IngestAsyncFunc(conn, jobID)
	}
}

// mockPipeline satisfies services.QueryPipeline.
type mockPipeline struct {
	RunFunc  func(ctx context.Context, conn *datasource.ConnectionConfig, question string) (*models.GenerateResult, error)
	RunCalls int
}

func (m *mockPipeline) Run(ctx context.Context, conn *datasource.ConnectionConfig, question string) (*models.GenerateResult, error) {
	m.RunCalls++
	if m.RunFunc != nil {
		return m.RunFunc(ctx, conn, question)
	}
	return &models.GenerateResult{Valid: true, SQL: "SELECT 1"}, nil
}

// mockRunner satisfies services.QueryRunner.
type mockRunner struct {
	RunOneFunc      func(ctx context.Context, conn *datasource.ConnectionConfig, sql string) (*models.QueryResult, error)
	RunPerTableFunc func(ctx context.Context, conn *datasource.ConnectionConfig, statements []string) ([]models.TableResult, error)
}

func (m *mockRunner) RunOne(ctx context.Context, conn *datasource.ConnectionConfig, sql string) (*models.QueryResult, error) {
	if m.RunOneFunc != nil {
		return m.RunOneFunc(ctx, conn, sql)
	}
	return &models.QueryResult{}, nil
}

func (m *mockRunner) RunPerTable(ctx context.Context, conn *datasource.ConnectionConfig, statements []string) ([]models.TableResult, error) {
	if m.RunPerTableFunc != nil {
		return m.RunPerTableFunc(ctx, conn, statements)
	}
	return nil, nil
}

// mockFormatter satisfies services.ResultFormatter.
type mockFormatter struct {
	summary string
}

func (m *mockFormatter) Summarize(ctx context.Context, question, sql string, result *models.QueryResult) string {
	if m.summary != "" {
		return m.summary
	}
	return "Returned some rows."
}

func testConn() *datasource.ConnectionConfig {
	return &datasource.ConnectionConfig{
		Host: "db", Port: 5432, User: "app", Database: "shop", Family: datasource.FamilyPostgres,
	}
}

func testCache() *cache.Cache {
	return cache.New(cache.NewMemoryStore(), zap.NewNop())
}
