package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driving"
)

var version = "dev"

// Services wired in by the entrypoint before Execute runs.
var (
	ingestService driving.IngestService
	searchService driving.SearchService
	taskQueue     driven.TaskQueue
	serveFn       func(ctx context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Crawl, chunk and embed web content for semantic retrieval",
	Long: `Quarry ingests web pages and uploaded documents into a pgvector-backed
store and answers similarity and hybrid search queries against it.`,
	SilenceUsage: true,
}

// Dependencies carries the wired services the commands run against.
type Dependencies struct {
	Ingester driving.IngestService
	Searcher driving.SearchService
	Queue    driven.TaskQueue
	Serve    func(ctx context.Context) error
	Version  string
}

// Execute wires the dependencies into the command tree and runs it.
func Execute(deps Dependencies) error {
	ingestService = deps.Ingester
	searchService = deps.Searcher
	taskQueue = deps.Queue
	serveFn = deps.Serve
	if deps.Version != "" {
		version = deps.Version
	}
	return rootCmd.Execute()
}
