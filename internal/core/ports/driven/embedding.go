package driven

import (
	"context"
)

// EmbeddingService generates text embeddings. Implementations batch large
// inputs into provider-appropriate request sizes internally; callers pass
// the full chunk-text list for one document. The returned slice always has
// one entry per input text, positionally aligned; entries for empty or
// whitespace-only inputs are nil and the provider is never called for them.
type EmbeddingService interface {
	// Embed generates embeddings for multiple texts.
	// Provider failures wrap domain.ErrEmbeddingProvider and abort the
	// whole batch; there is no partial result.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single search query.
	// Empty or whitespace-only input fails with domain.ErrInvalidInput.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size, fixed at
	// construction time by the configured model.
	Dimensions() int

	// Model returns the model identifier. Vectors are only comparable
	// when produced under the same identifier.
	Model() string

	// HealthCheck verifies the embedding provider is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service.
	Close() error
}
