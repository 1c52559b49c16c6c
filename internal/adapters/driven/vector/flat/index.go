// Package flat provides an exact, in-memory nearest-neighbour vector index.
//
// Every query scans all entries and ranks them by squared Euclidean
// distance. Entries are kept in insertion order, which also breaks ties.
package flat

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

// Config holds configuration for the flat index.
type Config struct {
	// Dimension is the fixed vector length. Required.
	Dimension int

	// Dir is where Persist and Restore read and write index files.
	// Defaults to the current directory.
	Dir string
}

// Index is a brute-force vector index with parallel text payloads.
type Index struct {
	mu        sync.RWMutex
	dimension int
	dir       string
	vectors   [][]float32
	texts     []string
}

// New creates an empty index.
func New(cfg Config) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, cfg.Dimension)
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	return &Index{
		dimension: cfg.Dimension,
		dir:       dir,
	}, nil
}

// Dimension returns the fixed vector dimension.
func (x *Index) Dimension() int {
	return x.dimension
}

// Len returns the number of entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Add appends vectors with their texts. Nothing is added unless every
// vector has the index dimension and the counts agree.
func (x *Index) Add(vectors [][]float32, texts []string) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: %d vectors, %d texts", domain.ErrShapeMismatch, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index has %d",
				domain.ErrShapeMismatch, i, len(v), x.dimension)
		}
	}

	copied := make([][]float32, len(vectors))
	for i, v := range vectors {
		copied[i] = slices.Clone(v)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = append(x.vectors, copied...)
	x.texts = append(x.texts, texts...)
	return nil
}

// Search returns up to k entries nearest to query.
func (x *Index) Search(query []float32, k int) ([]domain.RetrievedResult, error) {
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			domain.ErrDimensionMismatch, len(query), x.dimension)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.vectors) == 0 {
		return []domain.RetrievedResult{}, nil
	}

	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = hit{pos: i, dist: squaredL2(query, v)}
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(a.dist, b.dist)
	})

	k = min(k, len(hits))
	results := make([]domain.RetrievedResult, k)
	for i := range k {
		results[i] = domain.RetrievedResult{
			Text:     x.texts[hits[i].pos],
			Distance: hits[i].dist,
		}
	}
	return results, nil
}

// Clear removes all entries. The dimension is retained.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = nil
	x.texts = nil
}

// Snapshot captures the current entries.
// Vectors are never mutated after Add, so the snapshot shares them.
func (x *Index) Snapshot() driven.IndexSnapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return driven.IndexSnapshot{
		Vectors: slices.Clone(x.vectors),
		Texts:   slices.Clone(x.texts),
	}
}

// Reset replaces the entries with snap.
// A snapshot whose shape does not match the index is ignored.
func (x *Index) Reset(snap driven.IndexSnapshot) {
	if !x.validShape(snap.Vectors, snap.Texts) {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = slices.Clone(snap.Vectors)
	x.texts = slices.Clone(snap.Texts)
}

func (x *Index) validShape(vectors [][]float32, texts []string) bool {
	if len(vectors) != len(texts) {
		return false
	}
	for _, v := range vectors {
		if len(v) != x.dimension {
			return false
		}
	}
	return true
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
