package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible gateways).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// PipelineSettings controls chunking, retrieval and generation.
type PipelineSettings struct {
	// ChunkSize is the chunk window length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	ChunkOverlap int

	// TopK is the number of chunks retrieved per analysis.
	TopK int

	// MinTextLength is the minimum cleaned document length accepted.
	MinTextLength int

	// EmbeddingTimeout bounds each embedding provider call.
	EmbeddingTimeout time.Duration

	// GenerationTimeout bounds each generation provider call.
	GenerationTimeout time.Duration

	// Temperature is the sampling temperature for generation.
	Temperature float64

	// MaxTokens caps the generated response length.
	MaxTokens int
}

// Validate checks the chunking and retrieval parameters.
func (p PipelineSettings) Validate() error {
	switch {
	case p.ChunkSize <= 0:
		return ErrInvalidInput
	case p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize:
		return ErrInvalidInput
	case p.TopK <= 0:
		return ErrInvalidInput
	}
	return nil
}

// IndexSettings controls the vector index and its persisted state.
type IndexSettings struct {
	// Name is the persisted index name (files <Name>.vec and <Name>.texts.json).
	Name string

	// Dir is the directory holding persisted index files.
	Dir string

	// Persist saves the index after each analysis and restores it at startup.
	Persist bool
}

// ServerSettings holds the HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// AllowedOrigins lists CORS origins permitted to call the API.
	AllowedOrigins []string
}

// HistorySettings controls persistence of completed analyses.
type HistorySettings struct {
	// Enabled turns on the SQLite analysis history.
	Enabled bool

	// Path is the SQLite database file.
	Path string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Pipeline holds chunking, retrieval and generation settings.
	Pipeline PipelineSettings

	// Index holds vector index settings.
	Index IndexSettings

	// Server holds HTTP API settings.
	Server ServerSettings

	// History holds analysis history settings.
	History HistorySettings
}

// Default pipeline values.
const (
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultTopK              = 5
	DefaultMinTextLength     = 50
	DefaultTemperature       = 0.3
	DefaultMaxTokens         = 1500
	DefaultEmbeddingTimeout  = 60 * time.Second
	DefaultGenerationTimeout = 120 * time.Second
	DefaultIndexName         = "financial_docs"
	DefaultServerAddr        = ":8000"
)

// DefaultAppSettings returns settings with sensible defaults.
// Providers default to OpenAI; the API key must come from config or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultLLMModels()[AIProviderOpenAI],
		},
		Pipeline: DefaultPipelineSettings(),
		Index: IndexSettings{
			Name:    DefaultIndexName,
			Persist: true,
		},
		Server: ServerSettings{
			Addr:           DefaultServerAddr,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		History: HistorySettings{
			Enabled: true,
		},
	}
}

// DefaultPipelineSettings returns the default chunking and generation parameters.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		ChunkSize:         DefaultChunkSize,
		ChunkOverlap:      DefaultChunkOverlap,
		TopK:              DefaultTopK,
		MinTextLength:     DefaultMinTextLength,
		EmbeddingTimeout:  DefaultEmbeddingTimeout,
		GenerationTimeout: DefaultGenerationTimeout,
		Temperature:       DefaultTemperature,
		MaxTokens:         DefaultMaxTokens,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
