package domain

import "testing"

func TestCrawlStrategyValid(t *testing.T) {
	for _, s := range []CrawlStrategy{CrawlStrategyBFS, CrawlStrategyDFS, CrawlStrategyBestFirst} {
		if !s.Valid() {
			t.Errorf("strategy %s should be valid", s)
		}
	}
	if CrawlStrategy("random").Valid() {
		t.Error("unknown strategy should not be valid")
	}
	if CrawlStrategy("").Valid() {
		t.Error("empty strategy should not be valid")
	}
}

func TestDefaultCrawlConfig(t *testing.T) {
	cfg := DefaultCrawlConfig()

	if cfg.Strategy != CrawlStrategyBFS {
		t.Errorf("expected default strategy bfs, got %s", cfg.Strategy)
	}
	if cfg.MaxPages != 10 {
		t.Errorf("expected default max pages 10, got %d", cfg.MaxPages)
	}
	if !cfg.RespectRobots {
		t.Error("expected robots.txt respected by default")
	}
}

func TestCrawlResultPagesFetched(t *testing.T) {
	var nilResult *CrawlResult
	if nilResult.PagesFetched() != 0 {
		t.Error("nil result should report 0 pages")
	}

	empty := &CrawlResult{}
	if empty.PagesFetched() != 0 {
		t.Error("result without primary should report 0 pages")
	}

	r := &CrawlResult{
		Primary:    &PageResult{URL: "https://example.com"},
		Additional: []*PageResult{{URL: "https://example.com/a"}, {URL: "https://example.com/b"}},
	}
	if r.PagesFetched() != 3 {
		t.Errorf("expected 3 pages, got %d", r.PagesFetched())
	}
}
