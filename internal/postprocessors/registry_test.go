package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// registryMockProcessor is a simple mock for testing registry functionality.
type registryMockProcessor struct {
	name string
}

func (m *registryMockProcessor) Name() string { return m.name }
func (m *registryMockProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return chunks, nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if len(r.builders) != 0 {
		t.Errorf("expected empty builders, got %d", len(r.builders))
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	builder := func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "test"}, nil
	}

	r.Register("test", builder)

	if !r.Has("test") {
		t.Error("expected 'test' to be registered")
	}
}

func TestRegistry_Build_Success(t *testing.T) {
	r := NewRegistry()

	builder := func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &registryMockProcessor{name: name}, nil
	}

	r.Register("test", builder)

	proc, err := r.Build("test", map[string]any{"name": "custom"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if proc.Name() != "custom" {
		t.Errorf("expected name 'custom', got %q", proc.Name())
	}
}

func TestRegistry_Build_UnknownProcessor(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("unknown", nil)
	if err == nil {
		t.Error("expected error for unknown processor")
	}
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()

	if r.Has("nonexistent") {
		t.Error("expected Has to return false for nonexistent processor")
	}

	r.Register("exists", func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "exists"}, nil
	})

	if !r.Has("exists") {
		t.Error("expected Has to return true for registered processor")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()

	names := r.Names()
	if len(names) != 0 {
		t.Errorf("expected 0 names, got %d", len(names))
	}

	r.Register("alpha", func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "alpha"}, nil
	})
	r.Register("beta", func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "beta"}, nil
	})

	names = r.Names()
	if len(names) != 2 {
		t.Errorf("expected 2 names, got %d", len(names))
	}

	// Check both names are present (order may vary)
	nameSet := make(map[string]bool)
	for _, n := range names {
		nameSet[n] = true
	}
	if !nameSet["alpha"] || !nameSet["beta"] {
		t.Errorf("expected names alpha and beta, got %v", names)
	}
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	if !r.Has("chunker") {
		t.Error("expected 'chunker' to be registered after RegisterDefaults")
	}
}

func TestBuildChunker_WithConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	proc, err := r.Build("chunker", ChunkerConfig(500, 100))
	if err != nil {
		t.Fatalf("Build chunker failed: %v", err)
	}

	if proc.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %q", proc.Name())
	}
}

func TestBuildChunker_ZeroOverlap(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	proc, err := r.Build("chunker", ChunkerConfig(10, 0))
	if err != nil {
		t.Fatalf("Build chunker failed: %v", err)
	}

	chunks, err := proc.Process(context.Background(), &domain.Document{Content: "0123456789abcdefghij"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks without overlap, got %d", len(chunks))
	}
}

func TestBuildChunker_InvalidConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := r.Build("chunker", ChunkerConfig(100, 100))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildChunker_WithNilConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	proc, err := r.Build("chunker", nil)
	if err != nil {
		t.Fatalf("Build chunker with nil config failed: %v", err)
	}

	if proc.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %q", proc.Name())
	}
}

func TestRegistry_BuildPipeline(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	p, err := r.BuildPipeline([]string{"chunker"}, map[string]map[string]any{
		"chunker": ChunkerConfig(100, 20),
	})
	if err != nil {
		t.Fatalf("BuildPipeline failed: %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 processor, got %d", p.Len())
	}

	if _, err := r.BuildPipeline(nil, nil); err == nil {
		t.Error("expected error for empty processor list")
	}
	if _, err := r.BuildPipeline([]string{"stemmer"}, nil); err == nil {
		t.Error("expected error for unknown processor")
	}
}

func TestGetIntFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      map[string]any
		key      string
		expected int
		ok       bool
	}{
		{"int value", map[string]any{"size": 100}, "size", 100, true},
		{"int64 value", map[string]any{"size": int64(200)}, "size", 200, true},
		{"float64 value", map[string]any{"size": float64(300)}, "size", 300, true},
		{"zero value", map[string]any{"size": 0}, "size", 0, true},
		{"string value", map[string]any{"size": "400"}, "size", 0, false},
		{"missing key", map[string]any{"other": 100}, "size", 0, false},
		{"nil config", nil, "size", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := getIntFromConfig(tt.cfg, tt.key)
			if result != tt.expected || ok != tt.ok {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.expected, tt.ok, result, ok)
			}
		})
	}
}
