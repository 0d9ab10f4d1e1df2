package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/cache"
	"github.com/querypilot/engine/pkg/datasource"
	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/models"
	"github.com/querypilot/engine/pkg/vector"
)

// chunkIDLength is the hex prefix length of generated chunk IDs.
const chunkIDLength = 12

// SchemaIngestion runs the extract, chunk, embed, index pipeline for one
// connection. Each run fully replaces the tenant's index slice.
type SchemaIngestion interface {
	Ingest(ctx context.Context, conn *datasource.ConnectionConfig) (*models.IngestResult, error)

	// IngestAsync runs Ingest in the background and records progress under
	// jobID for polling. It returns as soon as the job is registered.
	IngestAsync(conn *datasource.ConnectionConfig, jobID string)
}

type schemaIngestion struct {
	newExtractor ExtractorFactory
	chunker      *Chunker
	embedder     llm.EmbeddingClient
	registry     *vector.Registry
	cache        *cache.Cache
	logger       *zap.Logger
}

// NewSchemaIngestion wires the ingestion stages together.
func NewSchemaIngestion(
	newExtractor ExtractorFactory,
	chunker *Chunker,
	embedder llm.EmbeddingClient,
	registry *vector.Registry,
	c *cache.Cache,
	logger *zap.Logger,
) SchemaIngestion {
	return &schemaIngestion{
		newExtractor: newExtractor,
		chunker:      chunker,
		embedder:     embedder,
		registry:     registry,
		cache:        c,
		logger:       logger.Named("ingestion"),
	}
}

func (s *schemaIngestion) Ingest(ctx context.Context, conn *datasource.ConnectionConfig) (*models.IngestResult, error) {
	tenantKey := conn.Fingerprint()

	extractor, err := s.newExtractor(ctx, conn, s.logger)
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}
	defer extractor.Close()

	schema, err := extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract schema: %w", err)
	}

	chunks := s.chunker.Chunk(schema)
	if len(chunks) == 0 {
		s.logger.Warn("schema produced no chunks", zap.String("tenant", tenantKey))
		s.cache.SetTableNames(ctx, tenantKey, schema.TableNames())
		return &models.IngestResult{Tables: len(schema.Tables)}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: expected %d vectors, got %d", len(chunks), len(vectors))
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	for i := range chunks {
		ids[i] = newChunkID()
		metadatas[i] = chunkMetadata(&chunks[i])
	}

	if err := s.registry.Upsert(tenantKey, ids, vectors, metadatas); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	s.cache.SetTableNames(ctx, tenantKey, schema.TableNames())

	s.logger.Info("schema ingested",
		zap.String("tenant", tenantKey),
		zap.Int("tables", len(schema.Tables)),
		zap.Int("chunks", len(chunks)))

	return &models.IngestResult{
		Tables:          len(schema.Tables),
		Chunks:          len(chunks),
		VectorsUpserted: len(vectors),
	}, nil
}

func (s *schemaIngestion) IngestAsync(conn *datasource.ConnectionConfig, jobID string) {
	// The job record is written before the goroutine starts so a poll that
	// races the worker still sees the job.
	s.cache.SetJob(context.Background(), &models.JobStatus{JobID: jobID, Status: models.JobRunning})

	go func() {
		ctx := context.Background()
		result, err := s.Ingest(ctx, conn)
		if err != nil {
			s.logger.Error("background ingestion failed",
				zap.String("job_id", jobID), zap.Error(err))
			s.cache.SetJob(ctx, &models.JobStatus{
				JobID:  jobID,
				Status: models.JobFailed,
				Error:  err.Error(),
			})
			return
		}
		s.cache.SetJob(ctx, &models.JobStatus{
			JobID:  jobID,
			Status: models.JobDone,
			Result: result,
		})
	}()
}

// NewJobID produces an identifier for a background ingestion job.
func NewJobID() string {
	return "sync-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:chunkIDLength]
}

func newChunkID() string {
	return "chunk-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:chunkIDLength]
}

// chunkMetadata flattens a chunk into index metadata. User-supplied
// metadata never overrides the reserved keys.
func chunkMetadata(c *models.SchemaChunk) map[string]string {
	meta := make(map[string]string, len(c.Metadata)+3)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta["table_name"] = c.TableName
	meta["chunk_kind"] = string(c.Kind)
	meta["text"] = c.StoredText()
	return meta
}
