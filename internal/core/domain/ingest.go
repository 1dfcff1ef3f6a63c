package domain

import "time"

// IngestOptions configures a single-URL ingestion
type IngestOptions struct {
	// DeepCrawl enables link expansion from the seed URL.
	DeepCrawl bool `json:"deep_crawl"`

	// Crawl configures the traversal when DeepCrawl is set.
	Crawl CrawlConfig `json:"crawl"`

	// ForceRecrawl re-fetches even when the URL was processed recently.
	ForceRecrawl bool `json:"force_recrawl"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// DefaultIngestOptions returns sensible defaults
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		DeepCrawl: false,
		Crawl:     DefaultCrawlConfig(),
	}
}

// BatchIngestOptions configures a multi-URL ingestion
type BatchIngestOptions struct {
	IngestOptions

	// Concurrency caps in-flight ingestions per batch.
	Concurrency int `json:"concurrency"`
}

// BatchItemError records one failed URL in a batch.
type BatchItemError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// BatchResult aggregates a batch ingestion outcome. Per-URL failures are
// reported as counts and messages, never as an aborted batch.
type BatchResult struct {
	Attempted int              `json:"attempted"`
	Succeeded []*Document      `json:"succeeded"`
	Failed    []BatchItemError `json:"failed"`
	Took      time.Duration    `json:"took"`
}
