// Package vector provides the per-tenant in-memory similarity index used
// for schema retrieval.
package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/querypilot/engine/pkg/apperrors"
)

// Match is one query result entry, ordered by descending score.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// generation is one immutable index build. Vectors are stored L2-normalized
// so cosine similarity reduces to an inner product. A generation is never
// mutated after construction; Upsert swaps the whole generation.
type generation struct {
	ids       []string
	vectors   [][]float32
	metadatas []map[string]string
	dim       int
}

// Registry holds one index generation per tenant key. It is safe for
// concurrent use: a query racing a re-ingestion observes either the old or
// the new generation in full, never a torn mix.
type Registry struct {
	mu          sync.RWMutex
	generations map[string]*generation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{generations: make(map[string]*generation)}
}

// Upsert replaces the tenant's index with exactly these vectors. Prior
// entries for the tenant are discarded; partial updates are not supported.
// All vectors must share one dimension.
func (r *Registry) Upsert(tenantKey string, ids []string, vectors [][]float32, metadatas []map[string]string) error {
	if len(ids) != len(vectors) || len(ids) != len(metadatas) {
		return fmt.Errorf("upsert length mismatch: %d ids, %d vectors, %d metadatas",
			len(ids), len(vectors), len(metadatas))
	}
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dim %d, expected %d",
				apperrors.ErrDimensionMismatch, i, len(v), dim)
		}
		normalized[i] = normalize(v)
	}

	gen := &generation{
		ids:       append([]string(nil), ids...),
		vectors:   normalized,
		metadatas: append([]map[string]string(nil), metadatas...),
		dim:       dim,
	}

	r.mu.Lock()
	r.generations[tenantKey] = gen
	r.mu.Unlock()
	return nil
}

// Query returns up to topK nearest entries by cosine similarity, ordered by
// descending score. A tenant with no index yields an empty result, not an
// error.
func (r *Registry) Query(tenantKey string, query []float32, topK int) ([]Match, error) {
	r.mu.RLock()
	gen := r.generations[tenantKey]
	r.mu.RUnlock()

	if gen == nil || len(gen.ids) == 0 {
		return nil, nil
	}
	if len(query) != gen.dim {
		return nil, fmt.Errorf("%w: query has dim %d, index has %d",
			apperrors.ErrDimensionMismatch, len(query), gen.dim)
	}

	q := normalize(query)
	matches := make([]Match, 0, len(gen.ids))
	for i, v := range gen.vectors {
		matches = append(matches, Match{
			ID:       gen.ids[i],
			Score:    dot(q, v),
			Metadata: gen.metadatas[i],
		})
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })

	if topK > 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Has reports whether the tenant currently has a non-empty index.
func (r *Registry) Has(tenantKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen := r.generations[tenantKey]
	return gen != nil && len(gen.ids) > 0
}

// normalize returns v scaled to unit length. A zero vector is returned
// unchanged rather than divided by zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return append([]float32(nil), v...)
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
