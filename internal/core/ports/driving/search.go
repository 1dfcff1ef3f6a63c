package driving

import (
	"context"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// SearchService answers similarity and hybrid queries over the stored chunks
type SearchService interface {
	// Search embeds the query once and ranks stored chunks by cosine
	// similarity, attaching parent-document metadata to each hit.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResult, error)

	// SearchWithKeywords adds substring keyword filters to a similarity
	// search. The keyword string is split on whitespace.
	SearchWithKeywords(ctx context.Context, query, keywords string, opts domain.SearchOptions) (*domain.SearchResult, error)

	// RelatedChunks returns sibling chunks of the given chunk, in
	// document order.
	RelatedChunks(ctx context.Context, chunkID string, limit int) ([]*domain.Chunk, error)

	// SimilarToDocument ranks chunks similar to the document's own stored
	// embedding.
	SimilarToDocument(ctx context.Context, documentID string, opts domain.SearchOptions) ([]*domain.RankedChunk, error)
}
