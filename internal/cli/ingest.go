package cli

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"catalograg/internal/adapter/catalog"
	"catalograg/internal/usecase"
)

var ingestDataDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the product catalog into the vector index",
	Long: `Load CSV catalog files, normalize rows into documents, embed them and
write them to the vector index. Re-running ingest on the same catalog
overwrites existing entries instead of duplicating them.

Examples:
  catalograg ingest                      # Use data_dir from config
  catalograg ingest --data-dir ./data    # Override the data directory`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestDataDir, "data-dir", "", "catalog directory (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	dataDir := cfg.Ingest.DataDir
	if ingestDataDir != "" {
		dataDir = ingestDataDir
	}

	fmt.Printf("Loading catalog from %s...\n", dataDir)
	reader := catalog.NewReader(dataDir, cfg.Ingest.Includes, cfg.Ingest.Excludes)
	rows, err := reader.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("No catalog rows found.")
		return nil
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to build embedder: %w", err)
	}

	idx, err := buildIndex(ctx, cfg, embedder)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	normalizer := catalog.NewNormalizer(catalog.FieldMapping{
		IDField:        cfg.Ingest.IDField,
		TextFields:     cfg.Ingest.TextFields,
		MetadataFields: cfg.Ingest.MetadataFields,
	})

	ing := usecase.NewIngestor(normalizer, embedder, idx, cfg.Ingest.BatchSize, cfg.Ingest.Workers)

	var (
		bar   *progressbar.ProgressBar
		barMu sync.Mutex
	)
	ing.Progress = func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Embedding"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	report, err := ing.Ingest(ctx, rows)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Rows loaded:   %d\n", len(rows))
	fmt.Printf("  Inserted:      %d\n", report.Inserted)
	fmt.Printf("  Skipped:       %d\n", report.Skipped)

	if len(report.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range report.Errors {
			fmt.Printf("  - row %d (%s): %v\n", e.Row, e.Ref, e.Err)
		}
	}

	count, err := idx.Count(ctx)
	if err == nil {
		fmt.Printf("\nIndex now holds %d documents.\n", count)
	}
	return nil
}
