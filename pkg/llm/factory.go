package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
)

// DefaultOpenAIEndpoint is used by the openai provider when no base URL is set.
const DefaultOpenAIEndpoint = "https://api.openai.com/v1"

// NewFromConfig creates the description model client for the configured
// provider, wrapped with retry and a circuit breaker. Returns ErrNotConfigured
// when no model is set.
func NewFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	if !cfg.IsAvailable() {
		return nil, ErrNotConfigured
	}

	clientCfg := &Config{
		Endpoint:  cfg.BaseURL,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	var (
		inner LLMClient
		err   error
	)
	switch cfg.Provider {
	case "anthropic":
		inner, err = NewAnthropicClient(clientCfg, logger)
	case "openai", "":
		if clientCfg.Endpoint == "" {
			clientCfg.Endpoint = DefaultOpenAIEndpoint
		}
		inner, err = NewClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	return NewGuardedClient(inner, nil, nil, logger), nil
}

// NewEmbeddingClientFromConfig creates the OpenAI-compatible embedding client
// used for marketplace matching. The embedding URL falls back to the LLM base
// URL (when the provider is openai) and then the public OpenAI API.
func NewEmbeddingClientFromConfig(llmCfg *config.LLMConfig, mkt *config.MarketplaceConfig, logger *zap.Logger) (EmbeddingClient, error) {
	endpoint := mkt.EmbeddingURL
	if endpoint == "" && llmCfg.Provider != "anthropic" {
		endpoint = llmCfg.BaseURL
	}
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}

	model := mkt.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return NewClient(&Config{
		Endpoint: endpoint,
		Model:    model,
		APIKey:   llmCfg.APIKey,
		Timeout:  time.Duration(llmCfg.TimeoutSeconds) * time.Second,
	}, logger)
}
