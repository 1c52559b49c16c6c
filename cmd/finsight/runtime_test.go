package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/services"
)

// localSettings uses Ollama for both providers, which needs no API key and
// makes no network call until an analysis runs.
func localSettings(t *testing.T) *domain.AppSettings {
	t.Helper()
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
		BaseURL:  "http://127.0.0.1:1",
	}
	settings.LLM = domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.2",
		BaseURL:  "http://127.0.0.1:1",
	}
	return &settings
}

func TestFinsightHome(t *testing.T) {
	t.Setenv("FINSIGHT_HOME", "/tmp/finsight-test-home")

	dir, err := finsightHome()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/finsight-test-home", dir)
}

func TestBuildRuntime(t *testing.T) {
	home := t.TempDir()
	settings := localSettings(t)

	rt, err := buildRuntime(settings, runtimeOptions{Home: home})
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close()) }()

	require.NotNil(t, rt.Analysis)
	assert.NotNil(t, rt.Metrics)
	assert.Len(t, rt.Watchers, 1)

	stats := rt.Analysis.Stats()
	assert.Equal(t, "nomic-embed-text", stats.EmbeddingModel)
	assert.Equal(t, "llama3.2", stats.LLMModel)
	assert.Equal(t, 768, stats.VectorStore.Dimension)
	assert.Equal(t, 0, stats.VectorStore.TotalVectors)
	assert.Equal(t, domain.ChunkConfig{ChunkSize: 1000, ChunkOverlap: 200}, stats.ChunkConfig)

	assert.DirExists(t, filepath.Join(home, "index"))
	assert.DirExists(t, filepath.Join(home, "prompts"))
	assert.FileExists(t, filepath.Join(home, "data", "history.db"))
}

func TestBuildRuntime_MemoryHistory(t *testing.T) {
	home := t.TempDir()
	settings := localSettings(t)
	settings.History.Enabled = false
	settings.Index.Persist = false

	rt, err := buildRuntime(settings, runtimeOptions{Home: home})
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close()) }()

	_, err = os.Stat(filepath.Join(home, "data", "history.db"))
	assert.True(t, os.IsNotExist(err))
	assert.NoDirExists(t, filepath.Join(home, "index"))
}

func TestBuildRuntime_UnconfiguredProvider(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding.APIKey = ""

	_, err := buildRuntime(&settings, runtimeOptions{Home: t.TempDir()})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestBuildRuntime_Ephemeral(t *testing.T) {
	home := t.TempDir()
	settings := localSettings(t)

	rt, err := buildRuntime(settings, runtimeOptions{Home: home, Ephemeral: true})
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close()) }()

	assert.Empty(t, rt.Watchers)
	assert.Equal(t, 768, rt.Analysis.Stats().VectorStore.Dimension)

	entries, err := os.ReadDir(home)
	require.NoError(t, err)
	assert.Empty(t, entries, "ephemeral runtime writes nothing under home")
}

func TestEphemeralConfig(t *testing.T) {
	env := map[string]string{
		envEmbeddingProvider: "openai",
		envLLMProvider:       "anthropic",
		envLLMBaseURL:        "https://llm.internal.example",
	}
	values := ephemeralConfig(func(k string) string { return env[k] })

	assert.Equal(t, map[string]any{
		"index.persist":      false,
		"history.enabled":    false,
		"embedding.provider": "openai",
		"llm.provider":       "anthropic",
		"llm.base_url":       "https://llm.internal.example",
	}, values)

	assert.Equal(t, map[string]any{
		"index.persist":   false,
		"history.enabled": false,
	}, ephemeralConfig(func(string) string { return "" }))
}

func TestEphemeralSettings(t *testing.T) {
	env := map[string]string{envEmbeddingProvider: "ollama", envLLMProvider: "ollama"}
	store := memory.NewConfigStoreFrom(ephemeralConfig(func(k string) string { return env[k] }))

	settings, err := services.NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.False(t, settings.Index.Persist)
	assert.False(t, settings.History.Enabled)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, ":memory:", store.Path())
}
