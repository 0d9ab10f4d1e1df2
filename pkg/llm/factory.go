package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/config"
)

// NewGenerationClient creates the generation client selected by config.
func NewGenerationClient(cfg *config.LLMConfig, logger *zap.Logger) (GenerationClient, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, timeout, logger)
	case "openai", "":
		return NewClient(&Config{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
			Timeout:  timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewEmbeddingClient creates the embedding client. Embeddings always go
// through an OpenAI-compatible endpoint.
func NewEmbeddingClient(cfg *config.EmbeddingConfig, logger *zap.Logger) (EmbeddingClient, error) {
	return NewClient(&Config{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, logger)
}
