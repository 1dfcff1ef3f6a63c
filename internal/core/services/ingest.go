package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-core/internal/chunker"
	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driving"
	"github.com/quarry-labs/quarry-core/internal/crawler"
)

// Verify interface compliance
var _ driving.IngestService = (*IngestPipeline)(nil)

const (
	defaultBatchConcurrency = 4
	defaultIngestLockTTL    = 5 * time.Minute

	// contentURLScheme keys uploaded content in the document table, which
	// is unique on URL just like crawled pages.
	contentURLScheme = "content://"
)

// IngestPipeline coordinates the content ingestion flow:
//  1. Look up any existing document for the URL
//  2. Crawl (deep or single-page) to obtain primary + additional pages
//  3. Upsert the primary document and rebuild its chunk set
//     (chunk -> embed batch -> replace chunks)
//  4. Ingest additional pages with lineage back to the seed,
//     isolating their failures
//  5. Return the primary document
type IngestPipeline struct {
	store    driven.VectorStore
	crawler  driven.Crawler
	fetcher  driven.Fetcher
	embedder driven.EmbeddingService
	chunker  *chunker.Chunker
	lock     driven.DistributedLock
	lockTTL  time.Duration
	logger   *slog.Logger
}

// IngestPipelineConfig holds dependencies for IngestPipeline.
// Lock is optional: when nil, concurrent ingestions of the same URL are
// not serialised across instances.
type IngestPipelineConfig struct {
	Store    driven.VectorStore
	Crawler  driven.Crawler
	Fetcher  driven.Fetcher
	Embedder driven.EmbeddingService
	Chunker  *chunker.Chunker
	Lock     driven.DistributedLock
	LockTTL  time.Duration
	Logger   *slog.Logger
}

// NewIngestPipeline creates a new ingestion pipeline.
func NewIngestPipeline(cfg IngestPipelineConfig) *IngestPipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultIngestLockTTL
	}
	ck := cfg.Chunker
	if ck == nil {
		ck = chunker.New(chunker.DefaultConfig())
	}

	return &IngestPipeline{
		store:    cfg.Store,
		crawler:  cfg.Crawler,
		fetcher:  cfg.Fetcher,
		embedder: cfg.Embedder,
		chunker:  ck,
		lock:     cfg.Lock,
		lockTTL:  lockTTL,
		logger:   logger,
	}
}

// Ingest crawls the URL and rebuilds its document and chunk set.
// Re-ingesting a known URL is an update: the page is re-fetched and the
// existing document row keeps its identity.
func (p *IngestPipeline) Ingest(ctx context.Context, rawURL string, opts domain.IngestOptions) (*domain.Document, error) {
	seed, err := crawler.NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: url %q: %v", domain.ErrInvalidInput, rawURL, err)
	}

	if p.lock != nil {
		acquired, err := p.lock.Acquire(ctx, ingestLockName(seed), p.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire ingest lock for %s: %w", seed, err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: %s", domain.ErrIngestInProgress, seed)
		}
		defer func() {
			if err := p.lock.Release(context.WithoutCancel(ctx), ingestLockName(seed)); err != nil {
				p.logger.Warn("failed to release ingest lock", "url", seed, "error", err)
			}
		}()
	}

	start := time.Now()
	p.logger.Info("starting ingestion",
		"url", seed,
		"deep_crawl", opts.DeepCrawl,
		"strategy", string(opts.Crawl.Strategy),
	)

	result, err := p.collect(ctx, seed, opts)
	if err != nil {
		return nil, err
	}

	strategy := domain.CrawlStrategy("")
	if opts.DeepCrawl {
		strategy = opts.Crawl.Strategy
	}

	primary, err := p.ingestPage(ctx, result.Primary, strategy, opts.Metadata)
	if err != nil {
		return nil, fmt.Errorf("ingest primary page %s: %w", seed, err)
	}

	stored := 1
	for _, page := range result.Additional {
		if err := p.ingestAdditional(ctx, page, primary, strategy, opts); err != nil {
			p.logger.Warn("additional page ingestion failed, skipping",
				"url", page.URL,
				"seed", seed,
				"error", err,
			)
			continue
		}
		stored++
	}

	p.logger.Info("ingestion completed",
		"url", seed,
		"pages_fetched", result.PagesFetched(),
		"pages_stored", stored,
		"took", time.Since(start),
	)

	return primary, nil
}

// collect obtains the page set for a seed: a full traversal when deep
// crawl is on, a single fetch otherwise.
func (p *IngestPipeline) collect(ctx context.Context, seed string, opts domain.IngestOptions) (*domain.CrawlResult, error) {
	if opts.DeepCrawl {
		result, err := p.crawler.Crawl(ctx, seed, opts.Crawl)
		if err != nil {
			return nil, fmt.Errorf("deep crawl %s: %w", seed, err)
		}
		return result, nil
	}

	page, err := p.fetcher.Fetch(ctx, seed, domain.FetchConfigFrom(opts.Crawl))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", seed, err)
	}
	return &domain.CrawlResult{Primary: page}, nil
}

// ingestAdditional stores one deep-crawl page with lineage back to the
// primary document. Pages already known are skipped unless a recrawl is
// forced.
func (p *IngestPipeline) ingestAdditional(ctx context.Context, page *domain.PageResult, primary *domain.Document, strategy domain.CrawlStrategy, opts domain.IngestOptions) error {
	if !opts.ForceRecrawl {
		if _, err := p.store.GetDocumentByURL(ctx, page.URL); err == nil {
			p.logger.Debug("additional page already ingested, skipping", "url", page.URL)
			return nil
		}
	}

	doc, err := p.ingestPage(ctx, page, strategy, opts.Metadata)
	if err != nil {
		return err
	}

	// Direct children of the seed link back to the primary row.
	if page.ParentURL == primary.URL {
		doc.ParentID = &primary.ID
		if _, err := p.store.UpsertDocument(ctx, doc); err != nil {
			return fmt.Errorf("link page to parent: %w", err)
		}
	}
	return nil
}

// ingestPage upserts one page's document row and rebuilds its chunks.
// The document is only marked processed after its new chunk set is stored,
// so a failed rebuild leaves it flagged for retry.
func (p *IngestPipeline) ingestPage(ctx context.Context, page *domain.PageResult, strategy domain.CrawlStrategy, extraMeta map[string]string) (*domain.Document, error) {
	doc := &domain.Document{
		URL:            page.URL,
		Title:          page.Title,
		RawContent:     page.Content,
		Markdown:       page.Markdown,
		Metadata:       mergeMetadata(page.Metadata, extraMeta),
		ParentURL:      page.ParentURL,
		Depth:          page.Depth,
		Strategy:       strategy,
		RelevanceScore: page.Score,
		IsProcessed:    false,
	}

	doc, err := p.store.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}

	if err := p.rebuildChunks(ctx, doc); err != nil {
		return nil, err
	}

	doc.IsProcessed = true
	doc.LastProcessedAt = time.Now()
	doc, err = p.store.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("mark document processed: %w", err)
	}

	return doc, nil
}

// rebuildChunks chunks the document text, embeds all chunks as one batch
// and atomically replaces the stored chunk set. Chunk order is preserved
// end to end so vector i always belongs to chunk i.
func (p *IngestPipeline) rebuildChunks(ctx context.Context, doc *domain.Document) error {
	text := doc.Markdown
	isMarkdown := true
	if strings.TrimSpace(text) == "" {
		text = doc.RawContent
		isMarkdown = false
	}

	pieces := p.chunker.Chunk(text, isMarkdown)
	if len(pieces) == 0 {
		p.logger.Warn("document produced no chunks", "url", doc.URL)
		return p.store.ReplaceChunks(ctx, doc.ID, nil)
	}

	vectors, err := p.embedder.Embed(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(pieces), err)
	}

	model := p.embedder.Model()
	chunks := make([]*domain.Chunk, 0, len(pieces))
	for i, content := range pieces {
		if vectors[i] == nil {
			continue
		}
		chunks = append(chunks, &domain.Chunk{
			ID:             domain.GenerateID(),
			DocumentID:     doc.ID,
			Content:        content,
			Index:          len(chunks),
			Embedding:      vectors[i],
			EmbeddingModel: model,
			Metadata: map[string]string{
				domain.ChunkMetaURL:        doc.URL,
				domain.ChunkMetaTitle:      doc.Title,
				domain.ChunkMetaTotal:      strconv.Itoa(len(pieces)),
				domain.ChunkMetaIsMarkdown: strconv.FormatBool(isMarkdown),
			},
		})
	}

	if err := p.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}

	return nil
}

// IngestContent ingests provided text directly, skipping the crawl stage.
// The name keys the document under a synthetic content:// URL so repeated
// uploads of the same name update in place.
func (p *IngestPipeline) IngestContent(ctx context.Context, name, content string, opts domain.IngestOptions) (*domain.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: content name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is empty", domain.ErrInvalidInput)
	}

	page := &domain.PageResult{
		URL:      contentURLScheme + slugify(name),
		Title:    name,
		Content:  content,
		Metadata: map[string]string{"source": "upload"},
	}

	doc, err := p.ingestPage(ctx, page, "", opts.Metadata)
	if err != nil {
		return nil, fmt.Errorf("ingest content %q: %w", name, err)
	}
	return doc, nil
}

// BatchIngest ingests URLs in sequential batches of opts.Concurrency.
// A batch fully resolves, successes and failures both, before the next
// batch starts; a per-URL failure never aborts the run.
func (p *IngestPipeline) BatchIngest(ctx context.Context, urls []string, opts domain.BatchIngestOptions) (*domain.BatchResult, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no urls to ingest", domain.ErrInvalidInput)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	start := time.Now()
	result := &domain.BatchResult{Attempted: len(urls)}

	var mu sync.Mutex
	for offset := 0; offset < len(urls); offset += concurrency {
		end := offset + concurrency
		if end > len(urls) {
			end = len(urls)
		}

		var wg sync.WaitGroup
		for _, url := range urls[offset:end] {
			wg.Add(1)
			go func(url string) {
				defer wg.Done()

				doc, err := p.Ingest(ctx, url, opts.IngestOptions)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					p.logger.Warn("batch item failed", "url", url, "error", err)
					result.Failed = append(result.Failed, domain.BatchItemError{
						URL:   url,
						Error: err.Error(),
					})
					return
				}
				result.Succeeded = append(result.Succeeded, doc)
			}(url)
		}
		wg.Wait()
	}

	result.Took = time.Since(start)

	p.logger.Info("batch ingestion completed",
		"attempted", result.Attempted,
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"took", result.Took,
	)

	return result, nil
}

// RefreshStale re-ingests documents whose last processing predates the
// staleness cutoff, oldest first. Returns the number refreshed.
func (p *IngestPipeline) RefreshStale(ctx context.Context, limit int) (int, error) {
	limit = domain.ClampLimit(limit, domain.MaxSearchLimit)

	cutoff := time.Now().Add(-defaultStaleAfter)
	stale, err := p.store.ListStaleDocuments(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale documents: %w", err)
	}

	refreshed := 0
	for _, doc := range stale {
		if strings.HasPrefix(doc.URL, contentURLScheme) {
			// Uploaded content has no origin to re-fetch.
			continue
		}
		opts := domain.DefaultIngestOptions()
		opts.ForceRecrawl = true
		if _, err := p.Ingest(ctx, doc.URL, opts); err != nil {
			p.logger.Warn("stale refresh failed", "url", doc.URL, "error", err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		p.logger.Info("stale documents refreshed", "count", refreshed, "cutoff", cutoff)
	}

	return refreshed, nil
}

// defaultStaleAfter is how old a document's last processing may be before
// the refresh pass picks it up.
const defaultStaleAfter = 24 * time.Hour

func ingestLockName(url string) string {
	return "ingest:" + url
}

func mergeMetadata(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return map[string]string{}
	}
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-', r == '.', r == '/':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
