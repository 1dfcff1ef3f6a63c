package driven

import (
	"context"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// Fetcher retrieves and extracts a single web page. Implementations own
// network transport, HTML extraction, markdown conversion, link discovery,
// relevance scoring and robots.txt compliance; the crawler only sequences
// calls to this port.
type Fetcher interface {
	// Fetch retrieves one page. Failures are reported as errors wrapping
	// domain.ErrFetch (network/render) or domain.ErrRobotsDisallowed.
	Fetch(ctx context.Context, url string, cfg domain.FetchConfig) (*domain.PageResult, error)
}

// Crawler performs a deep-crawl traversal from a seed URL. The ingestion
// pipeline drives it to obtain the primary page plus any pages reached by
// link expansion.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string, cfg domain.CrawlConfig) (*domain.CrawlResult, error)
}
