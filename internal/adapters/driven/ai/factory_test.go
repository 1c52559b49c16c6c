package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// newOllamaServer answers the two endpoints the Ollama adapters ping.
func newOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProviders_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		p := &Providers{}
		p.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantErr     bool
		errContains string
		wantModel   string
		wantDims    int
	}{
		{
			name:    "nil settings",
			wantErr: true,
		},
		{
			name: "ollama known model",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "mxbai-embed-large",
			},
			wantModel: "mxbai-embed-large",
			wantDims:  1024,
		},
		{
			name: "ollama unknown model uses default dimensions",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "custom-embed",
			},
			wantModel: "custom-embed",
			wantDims:  768,
		},
		{
			name: "openai",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-large",
			},
			wantModel: "text-embedding-3-large",
			wantDims:  3072,
		},
		{
			name: "openai without key",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantErr:     true,
			errContains: "API key is required",
		},
		{
			name: "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantErr:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name:        "unknown provider",
			settings:    &domain.EmbeddingSettings{Provider: "cohere"},
			wantErr:     true,
			errContains: "unsupported type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantErr   bool
		wantModel string
	}{
		{name: "nil settings", wantErr: true},
		{
			name:      "ollama",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "qwen2.5"},
			wantModel: "qwen2.5",
		},
		{
			name:      "openai",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o"},
			wantModel: "gpt-4o",
		},
		{
			name:      "anthropic",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantModel: "claude-3-5-sonnet-latest",
		},
		{
			name:     "anthropic without key",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic},
			wantErr:  true,
		},
		{
			name:     "unknown provider",
			settings: &domain.LLMSettings{Provider: "mistral"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	t.Run("unconfigured returns nil", func(t *testing.T) {
		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{})
		assert.NoError(t, err)
		assert.Nil(t, svc)
	})

	t.Run("reachable ollama", func(t *testing.T) {
		srv := newOllamaServer(t)
		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
			Model:    "nomic-embed-text",
		})
		require.NoError(t, err)
		require.NotNil(t, svc)
		svc.Close()
	})

	t.Run("unreachable service carries guidance", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		})
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Contains(t, err.Error(), "finsight settings")
	})
}

func TestCreateAndValidateLLMService(t *testing.T) {
	t.Run("unconfigured returns nil", func(t *testing.T) {
		svc, err := CreateAndValidateLLMService(nil)
		assert.NoError(t, err)
		assert.Nil(t, svc)
	})

	t.Run("reachable ollama", func(t *testing.T) {
		srv := newOllamaServer(t)
		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		})
		require.NoError(t, err)
		require.NotNil(t, svc)
		svc.Close()
	})

	t.Run("unreachable service", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := CreateAndValidateLLMService(&domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}

func TestInit(t *testing.T) {
	ollama := func(base string) *domain.AppSettings {
		s := domain.DefaultAppSettings()
		s.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: base}
		s.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: base}
		return &s
	}

	t.Run("missing embedding key", func(t *testing.T) {
		s := domain.DefaultAppSettings()
		_, err := Init(&s, false)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("missing llm key", func(t *testing.T) {
		s := ollama("http://localhost:11434")
		s.LLM = domain.LLMSettings{Provider: domain.AIProviderAnthropic}
		_, err := Init(s, false)
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("without validation", func(t *testing.T) {
		p, err := Init(ollama("http://127.0.0.1:1"), false)
		require.NoError(t, err)
		defer p.Close()
		assert.Equal(t, "nomic-embed-text", p.Embedding.ModelName())
		assert.Equal(t, "llama3.2", p.LLM.ModelName())
	})

	t.Run("with validation", func(t *testing.T) {
		srv := newOllamaServer(t)
		p, err := Init(ollama(srv.URL), true)
		require.NoError(t, err)
		p.Close()
	})
}

func TestValidateConfig(t *testing.T) {
	srv := newOllamaServer(t)

	assert.NoError(t, ValidateEmbeddingConfig(nil))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{}))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))
	assert.Error(t, ValidateLLMConfig(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: "http://127.0.0.1:1"}))
}
