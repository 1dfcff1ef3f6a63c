package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// MockVectorStore is an in-memory implementation of VectorStore for testing.
// It mirrors the real store's semantics: URL-unique upserts, atomic chunk
// replacement, cosine ranking with threshold and keyword filters, and the
// deterministic (similarity DESC, document_id ASC, chunk_index ASC) order.
type MockVectorStore struct {
	mu        sync.Mutex
	documents map[string]*domain.Document // by ID
	byURL     map[string]string           // URL -> ID
	chunks    map[string][]*domain.Chunk  // documentID -> ordered chunks

	// FailNextUpsert makes the next UpsertDocument fail (storage error).
	FailNextUpsert bool
}

// NewMockVectorStore creates a new MockVectorStore
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		documents: make(map[string]*domain.Document),
		byURL:     make(map[string]string),
		chunks:    make(map[string][]*domain.Chunk),
	}
}

func (m *MockVectorStore) UpsertDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNextUpsert {
		m.FailNextUpsert = false
		return nil, fmt.Errorf("%w: mock upsert failure", domain.ErrStorage)
	}

	if existingID, ok := m.byURL[doc.URL]; ok {
		existing := m.documents[existingID]
		updated := *doc
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = time.Now()
		m.documents[existing.ID] = &updated
		return &updated, nil
	}

	created := *doc
	if created.ID == "" {
		created.ID = domain.GenerateID()
	}
	now := time.Now()
	created.CreatedAt = now
	created.UpdatedAt = now
	m.documents[created.ID] = &created
	m.byURL[created.URL] = created.ID
	return &created, nil
}

func (m *MockVectorStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockVectorStore) GetDocumentByURL(ctx context.Context, url string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byURL[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *m.documents[id]
	return &copied, nil
}

func (m *MockVectorStore) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}

	delete(m.documents, id)
	delete(m.byURL, doc.URL)
	delete(m.chunks, id)

	// Weak parent references are cleared, never cascaded.
	for _, child := range m.documents {
		if child.ParentID != nil && *child.ParentID == id {
			child.ParentID = nil
		}
	}
	return nil
}

func (m *MockVectorStore) ListStaleDocuments(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []*domain.Document
	for _, doc := range m.documents {
		if doc.LastProcessedAt.Before(olderThan) {
			copied := *doc
			stale = append(stale, &copied)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].LastProcessedAt.Before(stale[j].LastProcessedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (m *MockVectorStore) ReplaceChunks(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[documentID]; !ok {
		return domain.ErrNotFound
	}

	replaced := make([]*domain.Chunk, len(chunks))
	for i, chunk := range chunks {
		copied := *chunk
		if copied.ID == "" {
			copied.ID = domain.GenerateID()
		}
		copied.DocumentID = documentID
		replaced[i] = &copied
	}
	m.chunks[documentID] = replaced
	return nil
}

func (m *MockVectorStore) GetChunksByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chunks := make([]*domain.Chunk, len(m.chunks[documentID]))
	for i, chunk := range m.chunks[documentID] {
		copied := *chunk
		chunks[i] = &copied
	}
	return chunks, nil
}

func (m *MockVectorStore) SimilaritySearch(ctx context.Context, queryVector []float32, model string, opts domain.SearchOptions) ([]*domain.RankedChunk, error) {
	if err := domain.ValidateVector(queryVector); err != nil {
		return nil, err
	}
	if err := domain.ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	limit := domain.ClampLimit(opts.Limit, 10)

	m.mu.Lock()
	defer m.mu.Unlock()

	var ranked []*domain.RankedChunk
	for docID, chunks := range m.chunks {
		doc := m.documents[docID]
		for _, chunk := range chunks {
			if chunk.EmbeddingModel != model {
				continue
			}
			if !m.matchKeywords(chunk, doc, opts.Keywords) {
				continue
			}
			sim := domain.CosineSimilarity(chunk.Embedding, queryVector)
			if sim <= opts.Threshold {
				continue
			}
			chunkCopy := *chunk
			docCopy := *doc
			ranked = append(ranked, &domain.RankedChunk{
				Chunk:      &chunkCopy,
				Document:   &docCopy,
				Similarity: sim,
			})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		if ranked[i].Chunk.DocumentID != ranked[j].Chunk.DocumentID {
			return ranked[i].Chunk.DocumentID < ranked[j].Chunk.DocumentID
		}
		return ranked[i].Chunk.Index < ranked[j].Chunk.Index
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (m *MockVectorStore) matchKeywords(chunk *domain.Chunk, doc *domain.Document, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(chunk.Content)
	if doc != nil {
		haystack += " " + strings.ToLower(doc.Title) + " " + strings.ToLower(doc.URL)
	}
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (m *MockVectorStore) RelatedChunks(ctx context.Context, chunkID string, limit int) ([]*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var source *domain.Chunk
	for _, chunks := range m.chunks {
		for _, chunk := range chunks {
			if chunk.ID == chunkID {
				source = chunk
				break
			}
		}
	}
	if source == nil {
		return nil, domain.ErrNotFound
	}

	var related []*domain.Chunk
	for _, chunk := range m.chunks[source.DocumentID] {
		if chunk.ID == chunkID {
			continue
		}
		copied := *chunk
		related = append(related, &copied)
	}
	sort.Slice(related, func(i, j int) bool { return related[i].Index < related[j].Index })

	if limit > 0 && len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

func (m *MockVectorStore) FindSimilarToDocument(ctx context.Context, documentID, model string, opts domain.SearchOptions) ([]*domain.RankedChunk, error) {
	m.mu.Lock()
	var anchor []float32
	for _, chunk := range m.chunks[documentID] {
		if chunk.Index == 0 && chunk.EmbeddingModel == model {
			anchor = chunk.Embedding
			break
		}
	}
	m.mu.Unlock()

	if anchor == nil {
		return nil, domain.ErrNotFound
	}
	return m.SimilaritySearch(ctx, anchor, model, opts)
}

func (m *MockVectorStore) CountDocuments(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.documents), nil
}

func (m *MockVectorStore) Ping(ctx context.Context) error {
	return nil
}
