// Package fetch implements the page-fetch port over plain HTTP: bounded
// GET, goquery extraction, markdown conversion, same-host link discovery
// and per-host robots.txt compliance.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Ensure HTTPFetcher implements Fetcher
var _ driven.Fetcher = (*HTTPFetcher)(nil)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "quarry-core/1.0"

	// maxBodySize caps how much of a response body is read (5MB).
	maxBodySize = int64(5 * 1024 * 1024)
)

// HTTPFetcher fetches and extracts pages without JS rendering.
type HTTPFetcher struct {
	client    *http.Client
	converter *md.Converter
	userAgent string
	logger    *slog.Logger

	// robots.txt verdicts cached per host for the fetcher's lifetime.
	robotsMu sync.Mutex
	robots   map[string]*robotstxt.RobotsData
}

// HTTPFetcherConfig holds configuration for HTTPFetcher.
type HTTPFetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		converter: md.NewConverter("", true, nil),
		userAgent: userAgent,
		logger:    logger,
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch retrieves one page and extracts its title, text, markdown and
// same-host links.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, cfg domain.FetchConfig) (*domain.PageResult, error) {
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", domain.ErrInvalidInput, rawURL)
	}

	if cfg.RespectRobots {
		allowed, err := f.robotsAllowed(ctx, target)
		if err != nil {
			f.logger.Debug("robots.txt unavailable, proceeding", "host", target.Host, "error", err)
		} else if !allowed {
			return nil, fmt.Errorf("%w: %s", domain.ErrRobotsDisallowed, rawURL)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrFetch, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrFetch, err)
	}

	page := &domain.PageResult{
		URL:      rawURL,
		Metadata: map[string]string{},
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml") {
		if err := f.extractHTML(page, target, string(body)); err != nil {
			return nil, fmt.Errorf("%w: extract %s: %v", domain.ErrFetch, rawURL, err)
		}
	} else {
		page.Content = strings.TrimSpace(string(body))
	}

	page.Score = scorePage(page, cfg.ScoreKeywords)

	f.logger.Debug("page fetched",
		"url", rawURL,
		"title", page.Title,
		"links", len(page.Links),
		"score", page.Score,
	)

	return page, nil
}

// extractHTML fills in title, plain text, markdown and links from an HTML body.
func (f *HTTPFetcher) extractHTML(page *domain.PageResult, base *url.URL, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}

	page.Title = strings.TrimSpace(doc.Find("title").First().Text())

	// Links come off the full document, before boilerplate removal drops
	// navigation markup.
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		// Traversal stays on the seed page's host.
		if resolved.Host != base.Host {
			return
		}
		resolved.Fragment = ""
		link := resolved.String()
		if link == base.String() || seen[link] {
			return
		}
		seen[link] = true
		page.Links = append(page.Links, link)
	})

	// Boilerplate carries no retrievable content.
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	body := doc.Find("body")
	page.Content = strings.Join(strings.Fields(body.Text()), " ")

	if bodyHTML, err := body.Html(); err == nil && bodyHTML != "" {
		if markdown, err := f.converter.ConvertString(bodyHTML); err == nil {
			page.Markdown = strings.TrimSpace(markdown)
		}
	}

	return nil
}

// robotsAllowed checks the host's robots.txt, fetching and caching it on
// first contact. A missing or unreadable robots.txt allows everything.
func (f *HTTPFetcher) robotsAllowed(ctx context.Context, target *url.URL) (bool, error) {
	f.robotsMu.Lock()
	data, ok := f.robots[target.Host]
	f.robotsMu.Unlock()

	if !ok {
		robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return true, err
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		data, err = robotstxt.FromResponse(resp)
		if err != nil {
			return true, err
		}

		f.robotsMu.Lock()
		f.robots[target.Host] = data
		f.robotsMu.Unlock()
	}

	return data.TestAgent(target.Path, f.userAgent), nil
}

// scorePage rates page relevance as the fraction of keywords found in the
// URL, title or text. No keywords means every page scores 1.
func scorePage(page *domain.PageResult, keywords []string) float64 {
	if len(keywords) == 0 {
		return 1.0
	}

	haystack := strings.ToLower(page.URL + " " + page.Title + " " + page.Content)
	matched := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}
