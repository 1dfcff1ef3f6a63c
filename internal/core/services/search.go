package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.SearchService = (*SearchEngine)(nil)

// SearchEngine answers similarity and hybrid queries. Each call embeds
// the query text exactly once and delegates ranking to the vector store.
type SearchEngine struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
	logger   *slog.Logger
}

// SearchEngineConfig holds dependencies for SearchEngine.
type SearchEngineConfig struct {
	Store    driven.VectorStore
	Embedder driven.EmbeddingService
	Logger   *slog.Logger
}

// NewSearchEngine creates a new search engine.
func NewSearchEngine(cfg SearchEngineConfig) *SearchEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchEngine{
		store:    cfg.Store,
		embedder: cfg.Embedder,
		logger:   logger,
	}
}

// Search embeds the query and ranks stored chunks by cosine similarity.
func (s *SearchEngine) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if err := domain.ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	opts.Limit = domain.ClampLimit(opts.Limit, domain.DefaultSearchOptions().Limit)

	start := time.Now()

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ranked, err := s.store.SimilaritySearch(ctx, queryVector, s.embedder.Model(), opts)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	result := &domain.SearchResult{
		Query:      query,
		Results:    ranked,
		TotalCount: len(ranked),
		Took:       time.Since(start),
	}

	s.logger.Debug("search completed",
		"query", query,
		"results", result.TotalCount,
		"took", result.Took,
	)

	return result, nil
}

// SearchWithKeywords runs a hybrid search: the keyword string splits on
// whitespace into substring filters that AND with similarity ranking.
func (s *SearchEngine) SearchWithKeywords(ctx context.Context, query, keywords string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	opts.Keywords = strings.Fields(keywords)
	return s.Search(ctx, query, opts)
}

// RelatedChunks returns sibling chunks of the given chunk in document order.
func (s *SearchEngine) RelatedChunks(ctx context.Context, chunkID string, limit int) ([]*domain.Chunk, error) {
	if chunkID == "" {
		return nil, fmt.Errorf("%w: chunk id is required", domain.ErrInvalidInput)
	}
	limit = domain.ClampLimit(limit, domain.DefaultSearchOptions().Limit)

	chunks, err := s.store.RelatedChunks(ctx, chunkID, limit)
	if err != nil {
		return nil, fmt.Errorf("related chunks for %s: %w", chunkID, err)
	}
	return chunks, nil
}

// SimilarToDocument ranks chunks against the document's own stored
// embedding. No query embedding is generated.
func (s *SearchEngine) SimilarToDocument(ctx context.Context, documentID string, opts domain.SearchOptions) ([]*domain.RankedChunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	opts.Limit = domain.ClampLimit(opts.Limit, domain.DefaultSearchOptions().Limit)

	ranked, err := s.store.FindSimilarToDocument(ctx, documentID, s.embedder.Model(), opts)
	if err != nil {
		return nil, fmt.Errorf("similar to document %s: %w", documentID, err)
	}
	return ranked, nil
}
