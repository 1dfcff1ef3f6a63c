package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

const snippetLength = 160

var (
	searchLimit     int
	searchThreshold float64
	searchKeywords  string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested content",
	Long: `Embeds the query and ranks stored chunks by cosine similarity.
With --keywords the vector ranking is additionally filtered to chunks
whose content, document title or URL contain one of the keywords.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum cosine similarity, exclusive (0..1)")
	searchCmd.Flags().StringVar(&searchKeywords, "keywords", "", "space-separated keyword filter")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	ctx := context.Background()
	opts := domain.SearchOptions{
		Limit:     searchLimit,
		Threshold: searchThreshold,
	}

	var result *domain.SearchResult
	var err error
	if searchKeywords != "" {
		result, err = searchService.SearchWithKeywords(ctx, query, searchKeywords, opts)
	} else {
		result, err = searchService.Search(ctx, query, opts)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	return outputSearchTable(cmd, result)
}

func outputSearchJSON(cmd *cobra.Command, result *domain.SearchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, result *domain.SearchResult) error {
	if len(result.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("%d results in %s\n\n", result.TotalCount, result.Took.Round(time.Millisecond))
	for i, hit := range result.Results {
		title := ""
		url := ""
		if hit.Document != nil {
			title = hit.Document.Title
			url = hit.Document.URL
		}
		if title == "" {
			title = url
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, hit.Similarity)
		if url != "" {
			cmd.Printf("      %s\n", url)
		}
		if snippet := makeSnippet(hit.Chunk.Content); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// makeSnippet collapses whitespace and truncates on a rune boundary.
func makeSnippet(content string) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	runes := []rune(collapsed)
	if len(runes) <= snippetLength {
		return collapsed
	}
	return string(runes[:snippetLength]) + "..."
}
