package cli

import (
	"context"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven/mocks"
)

// stubIngester implements driving.IngestService for command tests
type stubIngester struct {
	mu       sync.Mutex
	ingested []string
	batches  [][]string
}

func (s *stubIngester) Ingest(ctx context.Context, url string, opts domain.IngestOptions) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingested = append(s.ingested, url)
	return &domain.Document{ID: "doc-1", URL: url, Title: "Stub Page"}, nil
}

func (s *stubIngester) IngestContent(ctx context.Context, name, content string, opts domain.IngestOptions) (*domain.Document, error) {
	return &domain.Document{ID: "doc-1", URL: "content://" + name}, nil
}

func (s *stubIngester) BatchIngest(ctx context.Context, urls []string, opts domain.BatchIngestOptions) (*domain.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, urls)
	result := &domain.BatchResult{Attempted: len(urls), Took: 5 * time.Millisecond}
	for _, url := range urls {
		result.Succeeded = append(result.Succeeded, &domain.Document{ID: domain.GenerateID(), URL: url})
	}
	return result, nil
}

func (s *stubIngester) RefreshStale(ctx context.Context, limit int) (int, error) {
	return 0, nil
}

// stubSearcher implements driving.SearchService for command tests
type stubSearcher struct {
	result *domain.SearchResult
}

func (s *stubSearcher) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	s.result.Query = query
	return s.result, nil
}

func (s *stubSearcher) SearchWithKeywords(ctx context.Context, query, keywords string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	return s.Search(ctx, query, opts)
}

func (s *stubSearcher) RelatedChunks(ctx context.Context, chunkID string, limit int) ([]*domain.Chunk, error) {
	return nil, nil
}

func (s *stubSearcher) SimilarToDocument(ctx context.Context, documentID string, opts domain.SearchOptions) ([]*domain.RankedChunk, error) {
	return nil, nil
}

func stubResult() *domain.SearchResult {
	doc := &domain.Document{ID: "doc-1", URL: "https://docs.example.com/install", Title: "Install Guide"}
	return &domain.SearchResult{
		Results: []*domain.RankedChunk{
			{
				Chunk:      &domain.Chunk{ID: "chunk-1", DocumentID: doc.ID, Content: "Run the installer and follow the prompts."},
				Document:   doc,
				Similarity: 0.91,
			},
		},
		TotalCount: 1,
		Took:       3 * time.Millisecond,
	}
}

// setupTestServices wires stub services into the command tree and
// returns a cleanup that detaches them.
func setupTestServices() (ingester *stubIngester, queue *mocks.MockTaskQueue, cleanup func()) {
	ingester = &stubIngester{}
	queue = mocks.NewMockTaskQueue()

	ingestService = ingester
	searchService = &stubSearcher{result: stubResult()}
	taskQueue = queue

	return ingester, queue, func() {
		ingestService = nil
		searchService = nil
		taskQueue = nil
	}
}
