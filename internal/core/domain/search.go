package domain

import "time"

// Max results a single search may return, regardless of requested limit.
const MaxSearchLimit = 100

// SearchOptions configures a similarity or hybrid search request
type SearchOptions struct {
	// Limit caps the number of results, clamped to 1..MaxSearchLimit.
	Limit int `json:"limit"`

	// Threshold excludes results with cosine similarity <= Threshold.
	// Must be in [0, 1].
	Threshold float64 `json:"threshold"`

	// Keywords are matched as case-insensitive substrings across chunk
	// content, document title and URL. Multiple keywords OR together and
	// the group ANDs with the similarity predicate.
	Keywords []string `json:"keywords,omitempty"`

	// Filters are exact-match metadata filters.
	Filters Filters `json:"filters,omitempty"`
}

// Filters provides equality filters applied alongside similarity
type Filters struct {
	ParentURL string `json:"parent_url,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
}

// DefaultSearchOptions returns sensible defaults
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit:     10,
		Threshold: 0,
	}
}

// SearchResult represents the result of a search query
type SearchResult struct {
	Query      string         `json:"query"`
	Results    []*RankedChunk `json:"results"`
	TotalCount int            `json:"total_count"`
	Took       time.Duration  `json:"took"`
}

// RankedChunk is a search hit with its parent document attached
type RankedChunk struct {
	Chunk      *Chunk    `json:"chunk"`
	Document   *Document `json:"document,omitempty"`
	Similarity float64   `json:"similarity"`
}
