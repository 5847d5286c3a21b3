package main

import (
	"encoding/json"
	"fmt"
	"os"

	"mf-search-workers/internal/common/database"
	"mf-search-workers/internal/fundsource"
	"mf-search-workers/internal/indexer"
	fundsearch "mf-search-workers/internal/workers/fund-search"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	indexSource string
	indexFile   string
	indexBatch  int
	indexQuiet  bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed fund names and load them into the search index",
	Long: `Reads every fund from Postgres or a JSON file, embeds the fund names and
bulk-loads them into Elasticsearch. The index is created with a dense_vector
mapping when it does not exist. Re-running overwrites documents by fund name.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexSource, "source", "postgres", "fund source: postgres or file")
	indexCmd.Flags().StringVarP(&indexFile, "file", "f", "", "JSON array of funds (with --source file)")
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "do not draw a progress bar")
	indexCmd.Flags().IntVar(&indexBatch, "batch-size", 0, "funds per embedding batch (default openai.embedding_batch_size)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var source fundsource.Source
	switch indexSource {
	case "postgres":
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Ping(ctx); err != nil {
			return err
		}
		source = fundsource.NewPostgresSource(pg.DB, cfg.Database.Postgres.FundTable, log)
	case "file":
		if indexFile == "" {
			return fmt.Errorf("--file is required with --source file")
		}
		source = fundsource.NewFileSource(indexFile, log)
	default:
		return fmt.Errorf("unknown source %q: use postgres or file", indexSource)
	}

	svc, err := fundsearch.Connect(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	batch := indexBatch
	if batch <= 0 {
		batch = cfg.OpenAI.EmbeddingBatchSize
	}

	ix := indexer.New(source, svc.LLM, svc.Store, batch, log)
	if !indexQuiet {
		ix.OnProgress(progressReporter())
	}

	report, err := ix.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// progressReporter draws a bar on stderr, sized on the first callback once
// the number of unique funds is known.
func progressReporter() func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Indexing funds"),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}
		_ = bar.Set(done)
	}
}
