package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore implements driven.VectorStore using PostgreSQL with the
// pgvector extension. Query vectors are always bound as parameters.
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new VectorStore
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

const documentColumns = `id, url, title, raw_content, markdown, metadata, parent_url, parent_id,
	depth, strategy, relevance_score, is_processed, last_processed_at, created_at, updated_at`

// UpsertDocument inserts the document or, when the URL is already known,
// updates that row in place. The returned document carries the row's
// identity and timestamps either way.
func (s *VectorStore) UpsertDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	id := doc.ID
	if id == "" {
		id = domain.GenerateID()
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO documents (id, url, title, raw_content, markdown, metadata, parent_url, parent_id,
			depth, strategy, relevance_score, is_processed, last_processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			raw_content = EXCLUDED.raw_content,
			markdown = EXCLUDED.markdown,
			metadata = EXCLUDED.metadata,
			parent_url = EXCLUDED.parent_url,
			parent_id = EXCLUDED.parent_id,
			depth = EXCLUDED.depth,
			strategy = EXCLUDED.strategy,
			relevance_score = EXCLUDED.relevance_score,
			is_processed = EXCLUDED.is_processed,
			last_processed_at = EXCLUDED.last_processed_at,
			updated_at = now()
		RETURNING ` + documentColumns

	row := s.db.QueryRowContext(ctx, query,
		id,
		doc.URL,
		doc.Title,
		doc.RawContent,
		doc.Markdown,
		metadataJSON,
		doc.ParentURL,
		NullString(doc.ParentID),
		doc.Depth,
		string(doc.Strategy),
		doc.RelevanceScore,
		doc.IsProcessed,
		doc.LastProcessedAt,
	)

	saved, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert document: %v", domain.ErrStorage, err)
	}
	return saved, nil
}

// GetDocument retrieves a document by ID
func (s *VectorStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %v", domain.ErrStorage, err)
	}
	return doc, nil
}

// GetDocumentByURL retrieves a document by its unique URL
func (s *VectorStore) GetDocumentByURL(ctx context.Context, url string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE url = $1`, url)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document url %s", domain.ErrNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document by url: %v", domain.ErrStorage, err)
	}
	return doc, nil
}

// DeleteDocument removes a document. Chunks cascade; child documents
// keep their rows with parent_id cleared by the FK.
func (s *VectorStore) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete document: %v", domain.ErrStorage, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete document: %v", domain.ErrStorage, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return nil
}

// ListStaleDocuments returns documents last processed before the cutoff,
// oldest first.
func (s *VectorStore) ListStaleDocuments(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+`
		 FROM documents
		 WHERE last_processed_at < $1
		 ORDER BY last_processed_at ASC
		 LIMIT $2`,
		olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list stale documents: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan stale document: %v", domain.ErrStorage, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ReplaceChunks atomically swaps the document's chunk set: the old set is
// deleted and the new one inserted in a single transaction.
func (s *VectorStore) ReplaceChunks(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
			return fmt.Errorf("delete old chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, document_id, content, chunk_index, embedding, embedding_model, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			if err := domain.ValidateVector(chunk.Embedding); err != nil {
				return err
			}
			id := chunk.ID
			if id == "" {
				id = domain.GenerateID()
			}
			metadataJSON, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("marshal chunk metadata: %w", err)
			}
			_, err = stmt.ExecContext(ctx,
				id,
				documentID,
				chunk.Content,
				chunk.Index,
				pgvector.NewVector(chunk.Embedding),
				chunk.EmbeddingModel,
				metadataJSON,
			)
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: replace chunks: %v", domain.ErrStorage, err)
	}
	return nil
}

// GetChunksByDocument retrieves a document's chunks ordered by index
func (s *VectorStore) GetChunksByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, chunk_index, embedding, embedding_model, metadata, created_at
		FROM chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: get chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", domain.ErrStorage, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// SimilaritySearch ranks chunks by cosine similarity to the query vector.
// Only chunks embedded under the given model participate; keyword and
// metadata filters AND with the similarity predicate. Ordering is
// deterministic: similarity DESC, then document_id and chunk_index ASC.
func (s *VectorStore) SimilaritySearch(ctx context.Context, queryVector []float32, model string, opts domain.SearchOptions) ([]*domain.RankedChunk, error) {
	if err := domain.ValidateVector(queryVector); err != nil {
		return nil, err
	}
	if err := domain.ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	limit := domain.ClampLimit(opts.Limit, domain.DefaultSearchOptions().Limit)

	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	vectorParam := arg(pgvector.NewVector(queryVector))
	conds = append(conds, "c.embedding_model = "+arg(model))
	conds = append(conds, fmt.Sprintf("1 - (c.embedding <=> %s) > %s", vectorParam, arg(opts.Threshold)))

	if len(opts.Keywords) > 0 {
		var kwConds []string
		for _, kw := range opts.Keywords {
			pattern := arg("%" + kw + "%")
			kwConds = append(kwConds, fmt.Sprintf(
				"(c.content ILIKE %[1]s OR d.title ILIKE %[1]s OR d.url ILIKE %[1]s)", pattern))
		}
		conds = append(conds, "("+strings.Join(kwConds, " OR ")+")")
	}
	if opts.Filters.ParentURL != "" {
		conds = append(conds, "d.parent_url = "+arg(opts.Filters.ParentURL))
	}
	if opts.Filters.Strategy != "" {
		conds = append(conds, "d.strategy = "+arg(opts.Filters.Strategy))
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.document_id, c.content, c.chunk_index, c.embedding, c.embedding_model, c.metadata, c.created_at,
			%s,
			1 - (c.embedding <=> %s) AS similarity
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE %s
		ORDER BY similarity DESC, c.document_id ASC, c.chunk_index ASC
		LIMIT %s`,
		prefixedDocumentColumns("d"), vectorParam, strings.Join(conds, " AND "), arg(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var ranked []*domain.RankedChunk
	for rows.Next() {
		hit, err := scanRankedChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan search hit: %v", domain.ErrStorage, err)
		}
		ranked = append(ranked, hit)
	}
	return ranked, rows.Err()
}

// RelatedChunks returns the other chunks of the source chunk's document,
// in index order.
func (s *VectorStore) RelatedChunks(ctx context.Context, chunkID string, limit int) ([]*domain.Chunk, error) {
	var documentID string
	err := s.db.QueryRowContext(ctx,
		`SELECT document_id FROM chunks WHERE id = $1`, chunkID).Scan(&documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: resolve chunk: %v", domain.ErrStorage, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, chunk_index, embedding, embedding_model, metadata, created_at
		FROM chunks
		WHERE document_id = $1 AND id <> $2
		ORDER BY chunk_index ASC
		LIMIT $3`,
		documentID, chunkID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: related chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", domain.ErrStorage, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// FindSimilarToDocument anchors a similarity search on the document's own
// first-chunk embedding for the given model.
func (s *VectorStore) FindSimilarToDocument(ctx context.Context, documentID, model string, opts domain.SearchOptions) ([]*domain.RankedChunk, error) {
	var anchor pgvector.Vector
	err := s.db.QueryRowContext(ctx, `
		SELECT embedding FROM chunks
		WHERE document_id = $1 AND chunk_index = 0 AND embedding_model = $2`,
		documentID, model).Scan(&anchor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored embedding for document %s", domain.ErrNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: resolve document embedding: %v", domain.ErrStorage, err)
	}

	return s.SimilaritySearch(ctx, anchor.Slice(), model, opts)
}

// CountDocuments returns the total document count
func (s *VectorStore) CountDocuments(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count documents: %v", domain.ErrStorage, err)
	}
	return count, nil
}

// Ping checks if the store is reachable
func (s *VectorStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc          domain.Document
		metadataJSON []byte
		parentID     sql.NullString
		strategy     string
	)
	err := row.Scan(
		&doc.ID,
		&doc.URL,
		&doc.Title,
		&doc.RawContent,
		&doc.Markdown,
		&metadataJSON,
		&doc.ParentURL,
		&parentID,
		&doc.Depth,
		&strategy,
		&doc.RelevanceScore,
		&doc.IsProcessed,
		&doc.LastProcessedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.ParentID = StringPtr(parentID)
	doc.Strategy = domain.CrawlStrategy(strategy)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var (
		chunk        domain.Chunk
		embedding    pgvector.Vector
		metadataJSON []byte
	)
	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.Content,
		&chunk.Index,
		&embedding,
		&chunk.EmbeddingModel,
		&metadataJSON,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	chunk.Embedding = embedding.Slice()
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
	}
	return &chunk, nil
}

func scanRankedChunk(row scanner) (*domain.RankedChunk, error) {
	var (
		chunk         domain.Chunk
		embedding     pgvector.Vector
		chunkMetaJSON []byte
		doc           domain.Document
		docMetaJSON   []byte
		parentID      sql.NullString
		strategy      string
		similarity    float64
	)
	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.Content,
		&chunk.Index,
		&embedding,
		&chunk.EmbeddingModel,
		&chunkMetaJSON,
		&chunk.CreatedAt,
		&doc.ID,
		&doc.URL,
		&doc.Title,
		&doc.RawContent,
		&doc.Markdown,
		&docMetaJSON,
		&doc.ParentURL,
		&parentID,
		&doc.Depth,
		&strategy,
		&doc.RelevanceScore,
		&doc.IsProcessed,
		&doc.LastProcessedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&similarity,
	)
	if err != nil {
		return nil, err
	}

	chunk.Embedding = embedding.Slice()
	if len(chunkMetaJSON) > 0 {
		if err := json.Unmarshal(chunkMetaJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
	}
	doc.ParentID = StringPtr(parentID)
	doc.Strategy = domain.CrawlStrategy(strategy)
	if len(docMetaJSON) > 0 {
		if err := json.Unmarshal(docMetaJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal document metadata: %w", err)
		}
	}

	return &domain.RankedChunk{Chunk: &chunk, Document: &doc, Similarity: similarity}, nil
}

// prefixedDocumentColumns qualifies the shared document column list with a
// table alias for use in joins.
func prefixedDocumentColumns(alias string) string {
	cols := strings.Split(documentColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
