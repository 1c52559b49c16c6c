// Package anthropic provides an LLM service adapter using the Anthropic API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	// defaultMaxTokens is used when the caller sets none; the API requires one.
	defaultMaxTokens = 1024

	// jsonPrefill starts the assistant turn so the reply continues a JSON object.
	jsonPrefill = "{"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using the Anthropic Messages API.
type LLMService struct {
	client anthropic.Client
	model  string
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)

	return &LLMService{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	params := s.params([]driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, opts.MaxTokens, opts.Temperature)
	params.StopSequences = opts.StopWords
	return s.send(ctx, params, "")
}

// Chat conducts a multi-turn conversation. System messages are sent as the
// system prompt. The API has no JSON mode, so with JSONMode set the reply is
// prefilled with an opening brace.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	params := s.params(messages, opts.MaxTokens, opts.Temperature)

	prefill := ""
	if opts.JSONMode && len(params.Messages) > 0 && messages[len(messages)-1].Role == driven.RoleUser {
		prefill = jsonPrefill
		params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(prefill)))
	}
	return s.send(ctx, params, prefill)
}

func (s *LLMService) params(messages []driven.ChatMessage, maxTokens int, temperature float64) anthropic.MessageNewParams {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(maxTokens),
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}

	for _, msg := range messages {
		switch msg.Role {
		case driven.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case driven.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return params
}

func (s *LLMService) send(ctx context.Context, params anthropic.MessageNewParams, prefill string) (string, error) {
	message, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: create message: %w", err)
	}

	var result strings.Builder
	result.WriteString(prefill)
	for _, block := range message.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	if result.Len() == len(prefill) {
		return "", errors.New("anthropic: no text content returned")
	}
	return strings.TrimSpace(result.String()), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models, without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
