package domain

// CrawlStrategy determines the order in which the crawl frontier is drained
type CrawlStrategy string

const (
	CrawlStrategyBFS       CrawlStrategy = "bfs"       // FIFO
	CrawlStrategyDFS       CrawlStrategy = "dfs"       // LIFO
	CrawlStrategyBestFirst CrawlStrategy = "bestfirst" // highest score first
)

// Valid reports whether the strategy is one of the known orderings.
func (s CrawlStrategy) Valid() bool {
	switch s {
	case CrawlStrategyBFS, CrawlStrategyDFS, CrawlStrategyBestFirst:
		return true
	}
	return false
}

// CrawlConfig configures a deep-crawl traversal run
type CrawlConfig struct {
	Strategy CrawlStrategy `json:"strategy"`

	// MaxPages bounds the number of pages fetched in one run, seed included.
	MaxPages int `json:"max_pages"`

	// MaxDepth bounds link-following depth relative to the seed (depth 0).
	// Zero disables the bound; MaxPages still applies.
	MaxDepth int `json:"max_depth"`

	// ScoreThreshold discards pages scoring below it before they are
	// enqueued. Only meaningful with CrawlStrategyBestFirst scoring,
	// but applied for all strategies.
	ScoreThreshold float64 `json:"score_threshold"`

	// ScoreKeywords drive the fetch collaborator's relevance scoring.
	ScoreKeywords []string `json:"score_keywords,omitempty"`

	RespectRobots bool `json:"respect_robots_txt"`

	// HTTPOnly requests plain HTTP fetching without JS rendering.
	HTTPOnly bool `json:"http_only"`
}

// DefaultCrawlConfig returns sensible defaults
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		Strategy:      CrawlStrategyBFS,
		MaxPages:      10,
		MaxDepth:      2,
		RespectRobots: true,
		HTTPOnly:      true,
	}
}

// FetchConfig is the per-page slice of CrawlConfig handed to the fetch collaborator
type FetchConfig struct {
	RespectRobots bool
	HTTPOnly      bool
	ScoreKeywords []string
}

// FetchConfigFrom extracts the fetch-level settings from a crawl config.
func FetchConfigFrom(cfg CrawlConfig) FetchConfig {
	return FetchConfig{
		RespectRobots: cfg.RespectRobots,
		HTTPOnly:      cfg.HTTPOnly,
		ScoreKeywords: cfg.ScoreKeywords,
	}
}

// PageResult is one fetched and extracted page
type PageResult struct {
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Markdown string            `json:"markdown"`
	Metadata map[string]string `json:"metadata"`

	// Links are absolute URLs discovered on the page.
	Links []string `json:"links,omitempty"`

	// Score is the relevance score assigned by the fetch collaborator.
	Score float64 `json:"score"`

	// Traversal bookkeeping, filled in by the crawler.
	Depth     int    `json:"depth"`
	ParentURL string `json:"parent_url,omitempty"`
}

// CrawlResult is the outcome of one traversal run. Primary is the seed
// page; Additional are pages reached by link expansion, in fetch order.
type CrawlResult struct {
	Primary    *PageResult   `json:"primary"`
	Additional []*PageResult `json:"additional"`
}

// PagesFetched returns the total page count including the seed.
func (r *CrawlResult) PagesFetched() int {
	if r == nil || r.Primary == nil {
		return 0
	}
	return 1 + len(r.Additional)
}
