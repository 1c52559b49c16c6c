package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/postprocessors/chunker"
)

// Config keys understood by the built-in chunker.
const (
	ChunkSizeKey = "chunk_size"
	OverlapKey   = "overlap"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// ChunkerConfig returns the generic config map for the built-in chunker.
func ChunkerConfig(size, overlap int) map[string]any {
	return map[string]any{
		ChunkSizeKey: size,
		OverlapKey:   overlap,
	}
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, ChunkSizeKey); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, OverlapKey); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	p := chunker.New(opts...)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}
	return p, nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
