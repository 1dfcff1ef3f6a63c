package domain

import "time"

// Document represents one crawled or uploaded unit of content.
// URL is the unique key: re-ingesting an existing URL updates the same
// document rather than creating a duplicate.
type Document struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	Title      string            `json:"title"`
	RawContent string            `json:"raw_content"`
	Markdown   string            `json:"markdown"`
	Metadata   map[string]string `json:"metadata"`

	// Crawl lineage, set only for documents produced by deep-crawl traversal.
	// ParentID is a weak reference: deleting the parent clears it but never
	// cascades onto the child.
	ParentURL      string        `json:"parent_url,omitempty"`
	ParentID       *string       `json:"parent_id,omitempty"`
	Depth          int           `json:"depth"`
	Strategy       CrawlStrategy `json:"strategy,omitempty"`
	RelevanceScore float64       `json:"relevance_score"`
	IsProcessed    bool          `json:"is_processed"`

	LastProcessedAt time.Time `json:"last_processed_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Chunk is a sized, ordered fragment of a document's text with its own
// embedding vector. (DocumentID, Index) is unique; indices are dense and
// 0-based so adjacent chunks are adjacent in source text.
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Index      int               `json:"chunk_index"`
	Embedding  []float32         `json:"embedding,omitempty"`
	// EmbeddingModel identifies the model that produced the vector.
	// Vectors from different models are never compared.
	EmbeddingModel string            `json:"embedding_model"`
	Metadata       map[string]string `json:"metadata"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Metadata keys carried on every chunk.
const (
	ChunkMetaURL        = "url"
	ChunkMetaTitle      = "title"
	ChunkMetaTotal      = "chunk_total"
	ChunkMetaIsMarkdown = "is_markdown"
)

// DocumentWithChunks combines a document with its chunks
type DocumentWithChunks struct {
	Document *Document `json:"document"`
	Chunks   []*Chunk  `json:"chunks"`
}
