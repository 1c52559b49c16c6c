package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/finsight/internal/adapters/driven/ai"
	"github.com/custodia-labs/finsight/internal/adapters/driven/config/file"
	"github.com/custodia-labs/finsight/internal/adapters/driven/metrics"
	"github.com/custodia-labs/finsight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/finsight/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/finsight/internal/adapters/driven/textsource"
	"github.com/custodia-labs/finsight/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/finsight/internal/adapters/driving/cli"
	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/core/services"
	"github.com/custodia-labs/finsight/internal/logger"
	"github.com/custodia-labs/finsight/internal/normalisers/docx"
	"github.com/custodia-labs/finsight/internal/normalisers/html"
	"github.com/custodia-labs/finsight/internal/normalisers/markdown"
	"github.com/custodia-labs/finsight/internal/normalisers/pdf"
	"github.com/custodia-labs/finsight/internal/normalisers/plaintext"
	"github.com/custodia-labs/finsight/internal/postprocessors"
)

// memoryHistorySize bounds the in-process history when SQLite is disabled.
const memoryHistorySize = 100

// finsightHome returns ~/.finsight, or $FINSIGHT_HOME when set.
func finsightHome() (string, error) {
	if dir := os.Getenv("FINSIGHT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".finsight"), nil
}

// Environment variables read in ephemeral mode, where there is no config file.
const (
	envEmbeddingProvider = "FINSIGHT_EMBEDDING_PROVIDER"
	envLLMProvider       = "FINSIGHT_LLM_PROVIDER"
	envEmbeddingBaseURL  = "FINSIGHT_EMBEDDING_BASE_URL"
	envLLMBaseURL        = "FINSIGHT_LLM_BASE_URL"
)

// runtimeOptions controls where the runtime keeps its state.
type runtimeOptions struct {
	// Home holds the default locations of the index, prompts and history.
	Home string

	// Ephemeral keeps the index and history in memory and uses the
	// built-in prompts. Nothing is written under Home.
	Ephemeral bool
}

// ephemeralConfig seeds the in-memory config store used by --ephemeral.
// Persistence is off; providers come from the environment.
func ephemeralConfig(getenv func(string) string) map[string]any {
	values := map[string]any{
		"index.persist":   false,
		"history.enabled": false,
	}
	for key, env := range map[string]string{
		"embedding.provider": envEmbeddingProvider,
		"embedding.base_url": envEmbeddingBaseURL,
		"llm.provider":       envLLMProvider,
		"llm.base_url":       envLLMBaseURL,
	} {
		if v := getenv(env); v != "" {
			values[key] = v
		}
	}
	return values
}

// buildRuntime wires the analysis pipeline from settings.
func buildRuntime(settings *domain.AppSettings, opts runtimeOptions) (rt *cli.Runtime, err error) {
	home := opts.Home
	if opts.Ephemeral {
		settings.Index.Persist = false
		settings.History.Enabled = false
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			_ = closeAll()
		}
	}()

	providers, err := ai.Init(settings, false)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() error {
		providers.Close()
		return nil
	})

	retrieval, err := buildRetrieval(settings, home, providers.Embedding)
	if err != nil {
		return nil, err
	}

	source := textsource.New(textsource.DefaultConfig(), plaintext.New(), markdown.New(), html.New(), pdf.New(), docx.New())

	var prompts *file.PromptStore
	builder := services.NewPromptBuilder(nil)
	if !opts.Ephemeral {
		promptDir := filepath.Join(home, "prompts")
		if err := os.MkdirAll(promptDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating prompt directory: %w", err)
		}
		prompts, err = file.NewPromptStore(promptDir)
		if err != nil {
			return nil, fmt.Errorf("loading prompts: %w", err)
		}
		builder = services.NewPromptBuilder(prompts)
	}

	store, err := buildHistory(settings.History, home)
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)

	exporter := metrics.NewExporter(metrics.DefaultConfig())

	analysis := services.NewAnalysisService(
		source,
		retrieval,
		builder,
		providers.LLM,
		store,
		exporter,
		settings.Pipeline,
	)

	rt = &cli.Runtime{
		Analysis: analysis,
		Metrics:  exporter.Handler(),
		Close:    closeAll,
	}

	if prompts == nil {
		return rt, nil
	}

	// Hot reload is a convenience; analysis works without it.
	if watcher, werr := file.NewPromptWatcher(prompts, prompts.Dir()); werr != nil {
		logger.Warn("Prompt reload disabled: %v", werr)
	} else {
		rt.Watchers = append(rt.Watchers, watcher)
	}

	return rt, nil
}

func buildRetrieval(settings *domain.AppSettings, home string, embedder driven.EmbeddingService) (*services.RetrievalPipeline, error) {
	indexDir := settings.Index.Dir
	if indexDir == "" {
		indexDir = filepath.Join(home, "index")
	}
	if settings.Index.Persist {
		if err := os.MkdirAll(indexDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	index, err := flat.New(flat.Config{Dimension: embedder.Dimensions(), Dir: indexDir})
	if err != nil {
		return nil, fmt.Errorf("embedding model %s: %w", embedder.ModelName(), err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	chunker, err := registry.BuildPipeline([]string{"chunker"}, map[string]map[string]any{
		"chunker": postprocessors.ChunkerConfig(settings.Pipeline.ChunkSize, settings.Pipeline.ChunkOverlap),
	})
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	cfg := services.RetrievalConfig{
		MinTextLength:    settings.Pipeline.MinTextLength,
		EmbeddingTimeout: settings.Pipeline.EmbeddingTimeout,
	}
	if settings.Index.Persist {
		cfg.IndexName = settings.Index.Name
	}

	retrieval := services.NewRetrievalPipeline(chunker, embedder, index, cfg)
	if cfg.IndexName != "" {
		retrieval.Restore(cfg.IndexName)
	}
	return retrieval, nil
}

func buildHistory(settings domain.HistorySettings, home string) (driven.AnalysisStore, error) {
	if !settings.Enabled {
		return memory.NewAnalysisStore(memoryHistorySize), nil
	}

	path := settings.Path
	if path == "" {
		path = filepath.Join(home, "data", "history.db")
	}
	db, err := sqlite.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return db.AnalysisStore(), nil
}
