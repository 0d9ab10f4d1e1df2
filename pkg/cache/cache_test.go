package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/models"
)

func newTestCache() (*Cache, *memoryStore) {
	store := NewMemoryStore().(*memoryStore)
	return New(store, zap.NewNop()), store
}

func TestJobStatusRoundTrip(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	_, ok := c.GetJob(ctx, "missing")
	assert.False(t, ok)

	c.SetJob(ctx, &models.JobStatus{
		JobID:  "job-1",
		Status: models.JobDone,
		Result: &models.IngestResult{Tables: 3, Chunks: 5, VectorsUpserted: 5},
	})

	got, ok := c.GetJob(ctx, "job-1")
	require.True(t, ok)
	assert.Equal(t, models.JobDone, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 5, got.Result.VectorsUpserted)
}

func TestTableNamesRoundTrip(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	_, ok := c.GetTableNames(ctx, "tenant-a")
	assert.False(t, ok)

	c.SetTableNames(ctx, "tenant-a", []string{"customers", "orders"})

	names, ok := c.GetTableNames(ctx, "tenant-a")
	require.True(t, ok)
	assert.Equal(t, []string{"customers", "orders"}, names)

	// Tenants do not share entries.
	_, ok = c.GetTableNames(ctx, "tenant-b")
	assert.False(t, ok)
}

func TestResponseRoundTrip(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	hash := QuestionHash("how many customers are there?")
	c.SetResponse(ctx, "tenant-a", hash, &models.GenerateResult{
		SQL:   "SELECT COUNT(*) FROM customers",
		Valid: true,
	})

	got, ok := c.GetResponse(ctx, "tenant-a", hash)
	require.True(t, ok)
	assert.True(t, got.Valid)
	assert.Contains(t, got.SQL, "COUNT")
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore().(*memoryStore)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)

	_, ok := store.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)

	// Expired entry was evicted on read.
	store.mu.RLock()
	_, present := store.entries["k"]
	store.mu.RUnlock()
	assert.False(t, present)
}

func TestQuestionHash_Stable(t *testing.T) {
	a := QuestionHash("show me all orders")
	b := QuestionHash("show me all orders")
	c := QuestionHash("show me all customers")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}
