package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

var (
	ingestDeep        bool
	ingestStrategy    string
	ingestMaxPages    int
	ingestMaxDepth    int
	ingestKeywords    []string
	ingestForce       bool
	ingestRobots      bool
	ingestEnqueue     bool
	ingestConcurrency int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url...]",
	Short: "Ingest one or more URLs",
	Long: `Fetches each URL, splits its content into chunks, embeds them and
stores the result. With --deep the crawler follows same-host links from
the seed page. With --enqueue the URLs are handed to the task queue and
processed by a running worker instead of inline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestDeep, "deep", false, "follow links from the seed page")
	ingestCmd.Flags().StringVar(&ingestStrategy, "strategy", string(domain.CrawlStrategyBFS), "crawl order: bfs, dfs or bestfirst")
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 0, "page budget for a deep crawl (0 uses the default)")
	ingestCmd.Flags().IntVar(&ingestMaxDepth, "max-depth", 0, "link depth bound for a deep crawl (0 is unbounded)")
	ingestCmd.Flags().StringSliceVar(&ingestKeywords, "keywords", nil, "relevance keywords for bestfirst scoring")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest pages that were already processed")
	ingestCmd.Flags().BoolVar(&ingestRobots, "respect-robots", true, "honour robots.txt when crawling")
	ingestCmd.Flags().BoolVar(&ingestEnqueue, "enqueue", false, "enqueue URLs for a background worker instead of ingesting inline")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "in-flight ingestions per batch (0 uses the default)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	opts, err := ingestOptions()
	if err != nil {
		return err
	}

	ctx := context.Background()

	if ingestEnqueue {
		return enqueueIngest(ctx, cmd, args, opts)
	}

	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if len(args) == 1 {
		doc, err := ingestService.Ingest(ctx, args[0], opts)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		cmd.Printf("Ingested %s (%s)\n", doc.URL, doc.ID)
		return nil
	}

	result, err := ingestService.BatchIngest(ctx, args, domain.BatchIngestOptions{
		IngestOptions: opts,
		Concurrency:   ingestConcurrency,
	})
	if err != nil {
		return fmt.Errorf("batch ingest failed: %w", err)
	}

	cmd.Printf("Ingested %d/%d URLs in %s\n", len(result.Succeeded), result.Attempted, result.Took.Round(time.Millisecond))
	for _, failure := range result.Failed {
		cmd.Printf("  failed %s: %s\n", failure.URL, failure.Error)
	}
	return nil
}

func enqueueIngest(ctx context.Context, cmd *cobra.Command, urls []string, opts domain.IngestOptions) error {
	if taskQueue == nil {
		return errors.New("task queue not configured")
	}

	for _, url := range urls {
		task := domain.NewIngestTask(url, opts)
		if err := taskQueue.Enqueue(ctx, task); err != nil {
			return fmt.Errorf("enqueue %s: %w", url, err)
		}
		cmd.Printf("Queued %s (%s)\n", url, task.ID)
	}
	return nil
}

func ingestOptions() (domain.IngestOptions, error) {
	opts := domain.DefaultIngestOptions()
	opts.DeepCrawl = ingestDeep
	opts.ForceRecrawl = ingestForce
	opts.Crawl.RespectRobots = ingestRobots
	opts.Crawl.ScoreKeywords = ingestKeywords

	strategy := domain.CrawlStrategy(ingestStrategy)
	if !strategy.Valid() {
		return opts, fmt.Errorf("unknown strategy %q (use: bfs, dfs or bestfirst)", ingestStrategy)
	}
	opts.Crawl.Strategy = strategy

	if ingestMaxPages > 0 {
		opts.Crawl.MaxPages = ingestMaxPages
	}
	if ingestMaxDepth > 0 {
		opts.Crawl.MaxDepth = ingestMaxDepth
	}
	return opts, nil
}
