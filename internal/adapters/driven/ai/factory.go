package ai

import (
	"fmt"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Embedding provider names accepted by the factory.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// EmbeddingConfig selects and configures an embedding provider.
type EmbeddingConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// NewEmbeddingService creates an embedding service for the configured
// provider. Unknown providers fail with domain.ErrInvalidProvider.
func NewEmbeddingService(cfg EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedding(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderOllama:
		return NewOllamaEmbedding(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, cfg.Provider)
	}
}
