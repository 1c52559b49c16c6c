package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SeededValuesAreCopied(t *testing.T) {
	seed := map[string]any{"pipeline.top_k": 5}
	store := NewConfigStoreFrom(seed)
	seed["pipeline.top_k"] = 9

	assert.Equal(t, 5, store.GetInt("pipeline.top_k"))
	_, ok := store.Get("index.name")
	assert.False(t, ok)
}

func TestConfigStore_GetInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{name: "int", value: 1000, want: 1000},
		{name: "int64 from toml", value: int64(200), want: 200},
		{name: "whole float from json", value: float64(5), want: 5},
		{name: "fractional float", value: 2.5, want: 0},
		{name: "numeric string from env", value: " 1200 ", want: 1200},
		{name: "non numeric string", value: "large", want: 0},
		{name: "bool", value: true, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStoreFrom(map[string]any{"pipeline.chunk_size": tt.value})
			assert.Equal(t, tt.want, store.GetInt("pipeline.chunk_size"))
		})
	}

	assert.Zero(t, NewConfigStore().GetInt("missing"))
}

func TestConfigStore_GetBool(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "true", value: true, want: true},
		{name: "false", value: false, want: false},
		{name: "string true", value: "true", want: true},
		{name: "string 1", value: "1", want: true},
		{name: "string false", value: "false", want: false},
		{name: "garbage", value: "sometimes", want: false},
		{name: "number", value: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStoreFrom(map[string]any{"index.persist": tt.value})
			assert.Equal(t, tt.want, store.GetBool("index.persist"))
		})
	}
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"llm.provider":   "anthropic",
		"pipeline.top_k": 5,
	})

	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.Empty(t, store.GetString("pipeline.top_k"))
	assert.Empty(t, store.GetString("missing"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{name: "string slice", value: []string{"http://a", "http://b"}, want: []string{"http://a", "http://b"}},
		{name: "any slice skips non strings", value: []any{"http://a", 3, "http://b"}, want: []string{"http://a", "http://b"}},
		{name: "comma separated", value: "http://a, ,http://b ", want: []string{"http://a", "http://b"}},
		{name: "other type", value: 42, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStoreFrom(map[string]any{"server.allowed_origins": tt.value})
			assert.Equal(t, tt.want, store.GetStringSlice("server.allowed_origins"))
		})
	}

	assert.Nil(t, NewConfigStore().GetStringSlice("missing"))
}

func TestConfigStore_GetStringSliceReturnsCopy(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{"server.allowed_origins": []string{"http://a"}})

	got := store.GetStringSlice("server.allowed_origins")
	got[0] = "http://evil"

	assert.Equal(t, []string{"http://a"}, store.GetStringSlice("server.allowed_origins"))
}

func TestConfigStore_SetSaveLoad(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = store.Set(key, i)
			_ = store.GetInt(key)
		}(i)
	}
	wg.Wait()

	for i := range 4 {
		_, ok := store.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok)
	}
}
