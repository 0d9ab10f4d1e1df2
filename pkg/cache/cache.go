// Package cache provides the key/value layer behind async job status, the
// per-tenant table-name list, and the per-question response cache. The
// backing store is Redis when configured, an in-process TTL map otherwise;
// callers cannot tell the difference, and a backend failure is always
// treated as a cache miss.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/models"
)

// TTLs per namespace.
const (
	JobTTL      = 24 * time.Hour
	TablesTTL   = time.Hour
	ResponseTTL = 5 * time.Minute
)

const (
	jobKeyPrefix      = "querypilot:sync:job:"
	tablesKeyPrefix   = "querypilot:schema:tables:"
	responseKeyPrefix = "querypilot:chat:"
)

// Store is the raw byte-level backend. Implementations must never block the
// pipeline on backend failures: Get reports a miss, Set drops the write.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Cache wraps a Store with the three JSON namespaces.
type Cache struct {
	store  Store
	logger *zap.Logger
}

// New creates a Cache over the given store.
func New(store Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger.Named("cache")}
}

// SetJob writes a background job's status record.
func (c *Cache) SetJob(ctx context.Context, status *models.JobStatus) {
	c.setJSON(ctx, jobKeyPrefix+status.JobID, status, JobTTL)
}

// GetJob reads a background job's status record.
func (c *Cache) GetJob(ctx context.Context, jobID string) (*models.JobStatus, bool) {
	var status models.JobStatus
	if !c.getJSON(ctx, jobKeyPrefix+jobID, &status) {
		return nil, false
	}
	return &status, true
}

// SetTableNames caches the tenant's table-name list. The schema extractor
// stays authoritative; this is only a latency shortcut.
func (c *Cache) SetTableNames(ctx context.Context, tenantKey string, names []string) {
	c.setJSON(ctx, tablesKeyPrefix+tenantKey, names, TablesTTL)
}

// GetTableNames reads the tenant's cached table-name list.
func (c *Cache) GetTableNames(ctx context.Context, tenantKey string) ([]string, bool) {
	var names []string
	if !c.getJSON(ctx, tablesKeyPrefix+tenantKey, &names) {
		return nil, false
	}
	return names, len(names) > 0
}

// SetResponse caches a pipeline result for one tenant + question hash.
func (c *Cache) SetResponse(ctx context.Context, tenantKey, questionHash string, result *models.GenerateResult) {
	c.setJSON(ctx, responseKeyPrefix+tenantKey+":"+questionHash, result, ResponseTTL)
}

// GetResponse reads a cached pipeline result.
func (c *Cache) GetResponse(ctx context.Context, tenantKey, questionHash string) (*models.GenerateResult, bool) {
	var result models.GenerateResult
	if !c.getJSON(ctx, responseKeyPrefix+tenantKey+":"+questionHash, &result) {
		return nil, false
	}
	return &result, true
}

func (c *Cache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.store.Set(ctx, key, data, ttl)
}

func (c *Cache) getJSON(ctx context.Context, key string, out any) bool {
	data, ok := c.store.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// QuestionHash returns the stable hash used to key the response cache.
func QuestionHash(question string) string {
	sum := sha256.Sum256([]byte(question))
	return hex.EncodeToString(sum[:])[:32]
}
