package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven/mocks"
)

func seedSite(f *mocks.MockFetcher) {
	f.AddPage(&domain.PageResult{
		URL:     "https://docs.example.com",
		Title:   "Home",
		Content: "home page",
		Links: []string{
			"https://docs.example.com/a",
			"https://docs.example.com/b",
			"https://docs.example.com/c",
			"https://docs.example.com/d",
			"https://docs.example.com/e",
		},
	})
	for _, path := range []string{"/a", "/b", "/c", "/d", "/e"} {
		f.AddPage(&domain.PageResult{
			URL:     "https://docs.example.com" + path,
			Title:   path,
			Content: "content of " + path,
		})
	}
}

func TestCrawl_SinglePage(t *testing.T) {
	fetcher := mocks.NewMockFetcher()
	seedSite(fetcher)
	c := New(fetcher, nil)

	result, err := c.Crawl(context.Background(), "https://docs.example.com", domain.CrawlConfig{
		Strategy: domain.CrawlStrategyBFS,
		MaxPages: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Primary == nil || result.Primary.URL != "https://docs.example.com" {
		t.Fatalf("expected seed as primary, got %+v", result.Primary)
	}
	if len(result.Additional) != 0 {
		t.Errorf("expected no additional pages, got %d", len(result.Additional))
	}
}

func TestCrawl_BFSMaxPages(t *testing.T) {
	fetcher := mocks.NewMockFetcher()
	seedSite(fetcher)
	c := New(fetcher, nil)

	result, err := c.Crawl(context.Background(), "https://docs.example.com", domain.CrawlConfig{
		Strategy: domain.CrawlStrategyBFS,
		MaxPages: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Exactly 3 distinct pages, seed included, seed never revisited.
	if got := result.PagesFetched(); got != 3 {
		t.Errorf("expected 3 pages fetched, got %d", got)
	}
	seen := map[string]bool{result.Primary.URL: true}
	for _, page := range result.Additional {
		if seen[page.URL] {
			t.Errorf("URL %s visited twice", page.URL)
		}
		seen[page.URL] = true
	}

	// BFS drains discovery order: /a then /b.
	if result.Additional[0].URL != "https://docs.example.com/a" ||
		result.Additional[1].URL != "https://docs.example.com/b" {
		t.Errorf("unexpected BFS order: %s, %s",
			result.Additional[0].URL, result.Additional[1].URL)
	}
}

func TestCrawl_DFSOrder(t *testing.T) {
	fetcher := mocks.NewMockFetcher()
	seedSite(fetcher)
	c := New(fetcher, nil)

	result, err := c.Crawl(context.Background(), "https://docs.example.com", domain.CrawlConfig{
		Strategy: domain.CrawlStrategyDFS,
		MaxPages: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// LIFO: last discovered link first.
	if result.Additional[0].URL != "https://docs.example.com/e" ||
		result.Additional[1].URL != "https://docs.example.com/d" {
		t.Errorf("unexpected DFS order: %s, %s",
			result.Additional[0].URL, result.Additional[1].URL)
	}
}

func TestCrawl_BestFirstOrder(t *testing.T) {
	fetcher := mocks.NewMockFetcher()
	seedSite(fetcher)
	c := New(fetcher, nil)

	result, err := c.Crawl(context.Background(), "https://docs.example.com", domain.CrawlConfig{
		Strategy:      domain.CrawlStrategyBestFirst,
		MaxPages:      3,
		ScoreKeywords: []string{"/b", "/d"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// /b and /d each score 0.5, every other link scores 0, so the two
	// budget slots after the seed go to the keyword URLs.
	if len(result.Additional) != 2 {
		t.Fatalf("expected 2 additional pages, got %d", len(result.Additional))
	}
	for _, page := range result.Additional {
		if page.URL != "https://docs.example.com/b" && page.URL != "https://docs.example.com/d" {
			t.Errorf("expected best-first to prefer keyword URLs, got %s", page.URL)
		}
	}
}

func TestCrawl_ScoreThresholdFiltersBeforeFetch(t *testing.T) {
	fetcher := mocks.NewMockFetcher()
	seedSite(fetcher)
	c := New(fetcher, nil)

	result, err := c.Crawl(context.Background(), "https://docs.example.com", domain.CrawlConfig{
		Strategy:       domain.CrawlStrategyBestFirst,
		MaxPages:       10,
		ScoreThreshold: 0.6,
		ScoreKeywords:  []string{"/a", "zzz"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every link scores at most 0.5 (one keyword of two), below the 0.6
	// threshold, so nothing beyond the seed is fetched.
	if len(result.Additional) != 0 {
		t.Errorf("expected below-threshold links discarded, got %d pages", len(result.Additional))
	}
	if len(fetcher.FetchedOrder()) != 1 {
		t.Errorf("discarded links must never be fetched, got fetches: %v", fetcher.FetchedOrder())
	}
}

func TestCrawl_FailedChildIsSkipped(t *testing.T) {
	fetcher := mocks.NewMockFetcher()
	seedSite(fetcher)
	fetcher.FailURL("https://docs.example.com/a")
	c := New(fetcher, nil)

	result, err := c.Crawl(context.Background(), "https://docs.example.com", domain.CrawlConfig{
		Strategy: domain.CrawlStrategyBFS,
		MaxPages: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, page := range result.Additional {
		if page.URL == "https://docs.example.com/a" {
			t.Error("failed page must not appear in results")
		}
	}
	if len(result.Additional) != 4 {
		t.Errorf("expected 4 surviving children, got %d", len(result.Additional))
	}
}

func TestCrawl_FailedSeedFailsRun(t *testing.T) {
	fetcher := mocks.NewMockFetcher()
	c := New(fetcher, nil)

	_, err := c.Crawl(context.Background(), "https://unreachable.example.com", domain.CrawlConfig{
		Strategy: domain.CrawlStrategyBFS,
		MaxPages: 3,
	})
	if !errors.Is(err, domain.ErrFetch) {
		t.Errorf("expected ErrFetch for failed seed, got %v", err)
	}
}

func TestCrawl_MaxDepthBound(t *testing.T) {
	fetcher := mocks.NewMockFetcher()
	fetcher.AddPage(&domain.PageResult{
		URL:   "https://site.example.com",
		Links: []string{"https://site.example.com/l1"},
	})
	fetcher.AddPage(&domain.PageResult{
		URL:   "https://site.example.com/l1",
		Links: []string{"https://site.example.com/l2"},
	})
	fetcher.AddPage(&domain.PageResult{
		URL: "https://site.example.com/l2",
	})
	c := New(fetcher, nil)

	result, err := c.Crawl(context.Background(), "https://site.example.com", domain.CrawlConfig{
		Strategy: domain.CrawlStrategyBFS,
		MaxPages: 10,
		MaxDepth: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Additional) != 1 {
		t.Fatalf("expected depth bound to stop at l1, got %d pages", len(result.Additional))
	}
	if result.Additional[0].Depth != 1 {
		t.Errorf("expected child depth 1, got %d", result.Additional[0].Depth)
	}
	if result.Additional[0].ParentURL != "https://site.example.com" {
		t.Errorf("unexpected parent URL %s", result.Additional[0].ParentURL)
	}
}

func TestCrawl_InvalidInputs(t *testing.T) {
	c := New(mocks.NewMockFetcher(), nil)

	_, err := c.Crawl(context.Background(), "ftp://example.com", domain.CrawlConfig{MaxPages: 1})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for ftp scheme, got %v", err)
	}

	_, err = c.Crawl(context.Background(), "https://example.com", domain.CrawlConfig{
		Strategy: "spiral",
		MaxPages: 1,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown strategy, got %v", err)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://Example.COM/Path/", "https://example.com/Path", false},
		{"https://example.com/page#section", "https://example.com/page", false},
		{" https://example.com ", "https://example.com", false},
		{"http://example.com/a?b=c", "http://example.com/a?b=c", false},
		{"ftp://example.com", "", true},
		{"not a url", "", true},
		{"/relative/path", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeURL(%q) expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeURL(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScoreURL(t *testing.T) {
	if got := ScoreURL("https://example.com/anything", nil); got != 1.0 {
		t.Errorf("expected 1.0 with no keywords, got %v", got)
	}
	if got := ScoreURL("https://example.com/install-guide", []string{"install", "guide"}); got != 1.0 {
		t.Errorf("expected 1.0 for both keywords, got %v", got)
	}
	if got := ScoreURL("https://example.com/install", []string{"install", "missing"}); got != 0.5 {
		t.Errorf("expected 0.5 for one of two keywords, got %v", got)
	}
	if got := ScoreURL("https://example.com/", []string{"absent"}); got != 0 {
		t.Errorf("expected 0 for no matches, got %v", got)
	}
}
