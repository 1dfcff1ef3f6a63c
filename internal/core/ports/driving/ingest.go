package driving

import (
	"context"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// IngestService drives the crawl -> chunk -> embed -> store pipeline
type IngestService interface {
	// Ingest crawls the URL (deep-crawled when requested), rebuilds its
	// chunk set and returns the primary document. Additional pages found
	// by deep crawl are ingested with lineage back to the seed; their
	// failures are isolated and never fail the seed ingestion.
	Ingest(ctx context.Context, url string, opts domain.IngestOptions) (*domain.Document, error)

	// IngestContent ingests provided text directly, skipping the crawl
	// stage. Used for uploaded documents and scripts.
	IngestContent(ctx context.Context, name, content string, opts domain.IngestOptions) (*domain.Document, error)

	// BatchIngest ingests URLs in sequential batches of opts.Concurrency;
	// per-URL failures are collected, never propagated.
	BatchIngest(ctx context.Context, urls []string, opts domain.BatchIngestOptions) (*domain.BatchResult, error)

	// RefreshStale re-ingests documents whose last processing is older
	// than the cutoff, returning the number of documents refreshed.
	RefreshStale(ctx context.Context, limit int) (int, error)
}
