package driven

import "github.com/custodia-labs/finsight/internal/core/domain"

// VectorIndex stores fixed-dimension vectors with parallel text payloads
// and answers exact nearest-neighbour queries by squared Euclidean distance.
// Implementations must be safe for concurrent use.
type VectorIndex interface {
	// Add appends vectors and their texts. Either all entries become
	// visible or none do. Returns domain.ErrShapeMismatch when the counts
	// differ or any vector has the wrong dimension.
	Add(vectors [][]float32, texts []string) error

	// Search returns up to k entries nearest to query, ascending by distance,
	// ties broken by insertion order. An empty index or k <= 0 yields no
	// results. Returns domain.ErrDimensionMismatch for a wrong-length query.
	Search(query []float32, k int) ([]domain.RetrievedResult, error)

	// Clear removes all entries. The dimension is retained.
	Clear()

	// Len returns the number of entries.
	Len() int

	// Dimension returns the fixed vector dimension.
	Dimension() int

	// Snapshot captures the current entries.
	Snapshot() IndexSnapshot

	// Reset replaces the entries with a previously captured snapshot.
	Reset(snap IndexSnapshot)

	// Persist writes the entries under name.
	Persist(name string) error

	// Restore loads entries previously persisted under name.
	// Returns false, leaving the index unchanged, if either file is missing
	// or unreadable.
	Restore(name string) bool
}

// IndexSnapshot is a point-in-time copy of a VectorIndex's entries.
type IndexSnapshot struct {
	Vectors [][]float32
	Texts   []string
}
