// Package crawler implements deep-crawl traversal: it fetches a seed URL,
// expands its link frontier under a bounded strategy and yields the fetched
// pages with parent linkage. Network transport, extraction and robots.txt
// compliance live behind the Fetcher port.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Crawler = (*Crawler)(nil)

// Crawler sequences fetch calls over a link frontier.
type Crawler struct {
	fetcher driven.Fetcher
	logger  *slog.Logger
}

// New creates a crawler on top of a fetch collaborator.
func New(fetcher driven.Fetcher, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{fetcher: fetcher, logger: logger}
}

// Crawl fetches the seed page and, within cfg's bounds, pages reachable
// from it. The seed is always the primary result; additional pages appear
// in fetch order. Per-page fetch failures are logged and skipped, never
// aborting the run.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, cfg domain.CrawlConfig) (*domain.CrawlResult, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = domain.CrawlStrategyBFS
	}
	if !cfg.Strategy.Valid() {
		return nil, fmt.Errorf("%w: unknown crawl strategy %q", domain.ErrInvalidInput, cfg.Strategy)
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}

	seed, err := NormalizeURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: seed url %q: %v", domain.ErrInvalidInput, seedURL, err)
	}

	fetchCfg := domain.FetchConfigFrom(cfg)

	visited := map[string]bool{seed: true}
	front := newFrontier(cfg.Strategy)
	front.push(&entry{url: seed, depth: 0})

	result := &domain.CrawlResult{}
	fetched := 0

	for front.len() > 0 && fetched < cfg.MaxPages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		e := front.pop()

		page, err := c.fetcher.Fetch(ctx, e.url, fetchCfg)
		if err != nil {
			if e.depth == 0 {
				// A failed seed fails the whole run.
				return nil, fmt.Errorf("fetch seed %s: %w", e.url, err)
			}
			c.logger.Warn("page fetch failed, skipping",
				"url", e.url,
				"depth", e.depth,
				"error", err,
			)
			continue
		}

		page.Depth = e.depth
		page.ParentURL = e.parentURL
		fetched++

		if e.depth == 0 {
			result.Primary = page
		} else {
			result.Additional = append(result.Additional, page)
		}

		c.expand(page, e, cfg, visited, front)
	}

	if result.Primary == nil {
		return nil, fmt.Errorf("%w: seed produced no page", domain.ErrFetch)
	}

	c.logger.Info("crawl completed",
		"seed", seed,
		"strategy", string(cfg.Strategy),
		"pages_fetched", result.PagesFetched(),
	)

	return result, nil
}

// expand enqueues a fetched page's links, applying dedup, the depth bound
// and the score threshold. Links are scored at discovery time so that
// below-threshold pages are discarded before they are ever fetched.
func (c *Crawler) expand(page *domain.PageResult, e *entry, cfg domain.CrawlConfig, visited map[string]bool, front *frontier) {
	childDepth := e.depth + 1
	if cfg.MaxDepth > 0 && childDepth > cfg.MaxDepth {
		return
	}

	for _, link := range page.Links {
		normalized, err := NormalizeURL(link)
		if err != nil || visited[normalized] {
			continue
		}

		score := ScoreURL(normalized, cfg.ScoreKeywords)
		if score < cfg.ScoreThreshold {
			continue
		}

		visited[normalized] = true
		front.push(&entry{
			url:       normalized,
			depth:     childDepth,
			parentURL: page.URL,
			score:     score,
		})
	}
}

// ScoreURL rates a URL's relevance as the fraction of keywords appearing
// in it, case-insensitive. With no keywords configured every URL scores 1,
// so thresholds only bite when keywords are set.
func ScoreURL(rawURL string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 1.0
	}

	lower := strings.ToLower(rawURL)
	matched := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// NormalizeURL canonicalises a URL for visited-set dedup: lowercases the
// scheme and host, strips the fragment and trims a trailing slash from the
// path. Only http(s) URLs are accepted.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), nil
}
