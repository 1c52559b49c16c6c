package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyChunkSize         = "pipeline.chunk_size"
	keyChunkOverlap      = "pipeline.chunk_overlap"
	keyTopK              = "pipeline.top_k"
	keyMinTextLength     = "pipeline.min_text_length"
	keyEmbeddingTimeout  = "pipeline.embedding_timeout"
	keyGenerationTimeout = "pipeline.generation_timeout"
	keyTemperature       = "pipeline.temperature"
	keyMaxTokens         = "pipeline.max_tokens"
	keyIndexName         = "index.name"
	keyIndexDir          = "index.dir"
	keyIndexPersist      = "index.persist"
	keyServerAddr        = "server.addr"
	keyServerOrigins     = "server.allowed_origins"
	keyHistoryEnabled    = "history.enabled"
	keyHistoryPath       = "history.path"
)

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvChunkSize       = "CHUNK_SIZE"
	EnvChunkOverlap    = "CHUNK_OVERLAP"
	EnvIndexPath       = "FINSIGHT_INDEX_PATH"
	EnvEmbeddingModel  = "EMBEDDING_MODEL"
	EnvLLMModel        = "LLM_MODEL"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// The aiValidator parameter is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// Stored values take precedence over defaults; environment variables
// take precedence over both.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.configStore.GetString(keyEmbedModel),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.configStore.GetString(keyLLMModel),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Pipeline: domain.PipelineSettings{
			ChunkSize:         s.getInt(keyChunkSize, defaults.Pipeline.ChunkSize),
			ChunkOverlap:      s.getInt(keyChunkOverlap, defaults.Pipeline.ChunkOverlap),
			TopK:              s.getInt(keyTopK, defaults.Pipeline.TopK),
			MinTextLength:     s.getInt(keyMinTextLength, defaults.Pipeline.MinTextLength),
			EmbeddingTimeout:  s.getDuration(keyEmbeddingTimeout, defaults.Pipeline.EmbeddingTimeout),
			GenerationTimeout: s.getDuration(keyGenerationTimeout, defaults.Pipeline.GenerationTimeout),
			Temperature:       s.getFloat(keyTemperature, defaults.Pipeline.Temperature),
			MaxTokens:         s.getInt(keyMaxTokens, defaults.Pipeline.MaxTokens),
		},
		Index: domain.IndexSettings{
			Name:    s.getString(keyIndexName, defaults.Index.Name),
			Dir:     s.configStore.GetString(keyIndexDir),
			Persist: s.getBool(keyIndexPersist, defaults.Index.Persist),
		},
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, defaults.Server.Addr),
			AllowedOrigins: defaults.Server.AllowedOrigins,
		},
		History: domain.HistorySettings{
			Enabled: s.getBool(keyHistoryEnabled, defaults.History.Enabled),
			Path:    s.configStore.GetString(keyHistoryPath),
		},
	}

	if origins := s.configStore.GetStringSlice(keyServerOrigins); len(origins) > 0 {
		settings.Server.AllowedOrigins = origins
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	s.applyEnv(settings)

	return settings, nil
}

// applyEnv overlays environment variables onto settings.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	keyFor := func(p domain.AIProvider) string {
		switch p {
		case domain.AIProviderOpenAI:
			return s.getenv(EnvOpenAIAPIKey)
		case domain.AIProviderAnthropic:
			return s.getenv(EnvAnthropicAPIKey)
		default:
			return ""
		}
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = keyFor(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = keyFor(settings.LLM.Provider)
	}
	if v := s.getenv(EnvEmbeddingModel); v != "" {
		settings.Embedding.Model = v
	}
	if v := s.getenv(EnvLLMModel); v != "" {
		settings.LLM.Model = v
	}
	if v, err := strconv.Atoi(s.getenv(EnvChunkSize)); err == nil && v > 0 {
		settings.Pipeline.ChunkSize = v
	}
	if v, err := strconv.Atoi(s.getenv(EnvChunkOverlap)); err == nil && v >= 0 {
		settings.Pipeline.ChunkOverlap = v
	}
	if v := s.getenv(EnvIndexPath); v != "" {
		settings.Index.Dir = v
	}
}

// Save persists application settings.
// API keys are only written when set, so keys supplied by the
// environment are never copied into the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyChunkSize, settings.Pipeline.ChunkSize},
		{keyChunkOverlap, settings.Pipeline.ChunkOverlap},
		{keyTopK, settings.Pipeline.TopK},
		{keyMinTextLength, settings.Pipeline.MinTextLength},
		{keyEmbeddingTimeout, settings.Pipeline.EmbeddingTimeout.String()},
		{keyGenerationTimeout, settings.Pipeline.GenerationTimeout.String()},
		{keyTemperature, settings.Pipeline.Temperature},
		{keyMaxTokens, settings.Pipeline.MaxTokens},
		{keyIndexName, settings.Index.Name},
		{keyIndexDir, settings.Index.Dir},
		{keyIndexPersist, settings.Index.Persist},
		{keyServerAddr, settings.Server.Addr},
		{keyServerOrigins, settings.Server.AllowedOrigins},
		{keyHistoryEnabled, settings.History.Enabled},
		{keyHistoryPath, settings.History.Path},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

func (s *SettingsService) envKey(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicAPIKey)
	default:
		return ""
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetChunking updates the chunk size and overlap.
func (s *SettingsService) SetChunking(size, overlap int) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Pipeline.ChunkSize = size
	settings.Pipeline.ChunkOverlap = overlap
	if err := settings.Pipeline.Validate(); err != nil {
		return fmt.Errorf("chunk size %d with overlap %d: %w", size, overlap, err)
	}

	return s.Save(settings)
}

// SetTopK updates how many chunks are retrieved per analysis.
func (s *SettingsService) SetTopK(k int) error {
	if k <= 0 {
		return fmt.Errorf("top_k must be positive: %w", domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Pipeline.TopK = k
	return s.Save(settings)
}

// Validate checks that the current settings can run an analysis.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline settings: %w", err)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured: %w",
			settings.Embedding.Provider, domain.ErrEmbeddingUnavailable)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured: %w",
			settings.LLM.Provider, domain.ErrLLMUnavailable)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt treats a stored zero as a value, so an overlap of 0 survives a reload.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
