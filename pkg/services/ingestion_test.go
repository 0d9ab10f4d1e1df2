package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/cache"
	"github.com/querypilot/engine/pkg/datasource"
	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/models"
	"github.com/querypilot/engine/pkg/vector"
)

type fakeExtractor struct {
	schema *models.SchemaInfo
	err    error
	closed bool
}

func (f *fakeExtractor) Extract(ctx context.Context) (*models.SchemaInfo, error) {
	return f.schema, f.err
}

func (f *fakeExtractor) Close() error {
	f.closed = true
	return nil
}

func fakeFactory(extractor datasource.SchemaExtractor, err error) ExtractorFactory {
	return func(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (datasource.SchemaExtractor, error) {
		return extractor, err
	}
}

func twoTableSchema() *models.SchemaInfo {
	return &models.SchemaInfo{
		Tables: []models.TableInfo{
			{
				Name: "customers",
				Columns: []models.ColumnInfo{
					{Name: "id", DataType: "integer"},
					{Name: "name", DataType: "text", Nullable: true},
				},
				PrimaryKey: []string{"id"},
			},
			{
				Name: "orders",
				Columns: []models.ColumnInfo{
					{Name: "id", DataType: "integer"},
					{Name: "customer_id", DataType: "integer"},
				},
				PrimaryKey: []string{"id"},
				ForeignKeys: []models.ForeignKey{
					{Columns: []string{"customer_id"}, ReferencedTable: "customers", ReferencedColumns: []string{"id"}},
				},
			},
		},
	}
}

// countingEmbedder returns a distinct unit vector per input so index
// contents are inspectable.
func countingEmbedder(dim int) *llm.MockClient {
	mock := llm.NewMockClient()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string) ([][]float32, error) {
		out := make([][]float32, len(inputs))
		for i := range inputs {
			v := make([]float32, dim)
			v[i%dim] = 1
			out[i] = v
		}
		return out, nil
	}
	return mock
}

func newIngestionFixture(t *testing.T, extractor datasource.SchemaExtractor, factoryErr error) (SchemaIngestion, *vector.Registry, *cache.Cache) {
	t.Helper()
	registry := vector.NewRegistry()
	store := cache.New(cache.NewMemoryStore(), zap.NewNop())
	ing := NewSchemaIngestion(
		fakeFactory(extractor, factoryErr),
		NewChunker(),
		countingEmbedder(4),
		registry,
		store,
		zap.NewNop(),
	)
	return ing, registry, store
}

func TestIngest_IndexesChunksAndCachesTableNames(t *testing.T) {
	extractor := &fakeExtractor{schema: twoTableSchema()}
	ing, registry, store := newIngestionFixture(t, extractor, nil)
	conn := testConn()

	result, err := ing.Ingest(context.Background(), conn)
	require.NoError(t, err)

	// Two table chunks plus one relationships chunk for orders.
	assert.Equal(t, 2, result.Tables)
	assert.Equal(t, 3, result.Chunks)
	assert.Equal(t, 3, result.VectorsUpserted)
	assert.True(t, extractor.closed)
	assert.True(t, registry.Has(conn.Fingerprint()))

	names, ok := store.GetTableNames(context.Background(), conn.Fingerprint())
	require.True(t, ok)
	assert.Equal(t, []string{"customers", "orders"}, names)
}

func TestIngest_ReplacesPreviousIndexGeneration(t *testing.T) {
	extractor := &fakeExtractor{schema: twoTableSchema()}
	ing, registry, _ := newIngestionFixture(t, extractor, nil)
	conn := testConn()

	_, err := ing.Ingest(context.Background(), conn)
	require.NoError(t, err)

	// Second run sees a shrunken schema; stale chunks must not survive.
	extractor.schema = &models.SchemaInfo{
		Tables: []models.TableInfo{
			{Name: "customers", Columns: []models.ColumnInfo{{Name: "id", DataType: "integer"}}},
		},
	}
	result, err := ing.Ingest(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Chunks)

	query := []float32{1, 0, 0, 0}
	matches, err := registry.Query(conn.Fingerprint(), query, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestIngest_ExtractionErrorPropagates(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("connection refused")}
	ing, registry, _ := newIngestionFixture(t, extractor, nil)
	conn := testConn()

	_, err := ing.Ingest(context.Background(), conn)
	require.Error(t, err)
	assert.False(t, registry.Has(conn.Fingerprint()))
}

func TestIngest_EmbeddingErrorPropagates(t *testing.T) {
	registry := vector.NewRegistry()
	store := cache.New(cache.NewMemoryStore(), zap.NewNop())
	embedder := llm.NewMockClient()
	embedder.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string) ([][]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	ing := NewSchemaIngestion(
		fakeFactory(&fakeExtractor{schema: twoTableSchema()}, nil),
		NewChunker(), embedder, registry, store, zap.NewNop(),
	)

	_, err := ing.Ingest(context.Background(), testConn())
	require.Error(t, err)
	assert.False(t, registry.Has(testConn().Fingerprint()))
}

func TestIngestAsync_RecordsJobLifecycle(t *testing.T) {
	ing, _, store := newIngestionFixture(t, &fakeExtractor{schema: twoTableSchema()}, nil)
	jobID := NewJobID()

	ing.IngestAsync(testConn(), jobID)

	// The job record exists immediately, even before the worker finishes.
	status, ok := store.GetJob(context.Background(), jobID)
	require.True(t, ok)
	assert.Contains(t, []models.JobState{models.JobRunning, models.JobDone}, status.Status)

	require.Eventually(t, func() bool {
		status, ok := store.GetJob(context.Background(), jobID)
		return ok && status.Status == models.JobDone
	}, 2*time.Second, 10*time.Millisecond)

	status, _ = store.GetJob(context.Background(), jobID)
	require.NotNil(t, status.Result)
	assert.Equal(t, 3, status.Result.Chunks)
}

func TestIngestAsync_FailureRecordsError(t *testing.T) {
	ing, _, store := newIngestionFixture(t, nil, errors.New("bad credentials"))
	jobID := NewJobID()

	ing.IngestAsync(testConn(), jobID)

	require.Eventually(t, func() bool {
		status, ok := store.GetJob(context.Background(), jobID)
		return ok && status.Status == models.JobFailed
	}, 2*time.Second, 10*time.Millisecond)

	status, _ := store.GetJob(context.Background(), jobID)
	assert.Contains(t, status.Error, "bad credentials")
}

func TestNewJobID_UniqueAndPrefixed(t *testing.T) {
	a, b := NewJobID(), NewJobID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "sync-")
}
