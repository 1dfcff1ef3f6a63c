package driven

import (
	"context"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// VectorStore persists documents and their embedded chunks and executes
// similarity and hybrid queries. All vector, threshold and limit inputs
// are validated before any query runs; vectors are bound as parameters,
// never interpolated into SQL text.
type VectorStore interface {
	// UpsertDocument inserts the document if its URL is unseen, otherwise
	// updates the existing row in place. The returned document carries the
	// row's identity either way.
	UpsertDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByURL retrieves a document by its unique URL.
	GetDocumentByURL(ctx context.Context, url string) (*domain.Document, error)

	// DeleteDocument removes a document and, via cascade, its chunks.
	// Children referencing it as parent have the reference cleared.
	DeleteDocument(ctx context.Context, id string) error

	// ListStaleDocuments returns documents last processed before the cutoff.
	ListStaleDocuments(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Document, error)

	// ReplaceChunks atomically deletes all existing chunks for the
	// document and inserts the new set. Old and new chunk sets are never
	// mixed, and a failure leaves the previous set intact.
	ReplaceChunks(ctx context.Context, documentID string, chunks []*domain.Chunk) error

	// GetChunksByDocument retrieves a document's chunks ordered by index.
	GetChunksByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)

	// SimilaritySearch ranks chunks by cosine similarity to the query
	// vector, descending, including only rows with similarity above the
	// threshold. Keyword filters apply as an AND with the similarity
	// predicate. Only chunks embedded under the given model are compared.
	SimilaritySearch(ctx context.Context, queryVector []float32, model string, opts domain.SearchOptions) ([]*domain.RankedChunk, error)

	// RelatedChunks returns the other chunks of the source chunk's parent
	// document, ordered by chunk index ascending, capped at limit.
	// Fails with domain.ErrNotFound for an unknown chunk ID.
	RelatedChunks(ctx context.Context, chunkID string, limit int) ([]*domain.Chunk, error)

	// FindSimilarToDocument uses the document's own stored embedding as
	// the similarity anchor. Fails with domain.ErrNotFound if the document
	// has no stored embedding for the given model.
	FindSimilarToDocument(ctx context.Context, documentID, model string, opts domain.SearchOptions) ([]*domain.RankedChunk, error)

	// CountDocuments returns the total document count.
	CountDocuments(ctx context.Context) (int, error)

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error
}
