package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"catalograg/internal/usecase"
)

var (
	queryText   string
	queryTopK   int
	queryJSON   bool
	queryRerank bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the product catalog",
	Long: `Run a one-shot retrieval against the index, without conversation
history or answer generation.

Examples:
  catalograg query -q "lightweight running shoes"
  catalograg query -q "waterproof jacket" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", true, "rerank candidates with the cross-encoder")
	queryCmd.MarkFlagRequired("query")
}

type queryResult struct {
	ID          string            `json:"id"`
	Similarity  float64           `json:"similarity"`
	RerankScore *float64          `json:"rerank_score,omitempty"`
	Metadata    map[string]string `json:"metadata"`
	Text        string            `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to build embedder: %w", err)
	}

	idx, err := buildIndex(ctx, cfg, embedder)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	reranker, err := buildReranker(cfg)
	if err != nil {
		return fmt.Errorf("failed to build reranker: %w", err)
	}

	retriever := usecase.NewRetriever(embedder, idx, reranker, cfg.Retrieve.MaxInflight)

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	set, err := retriever.Retrieve(ctx, nil, queryText, queryRerank, usecase.RetrieveOptions{
		TopK:       topK,
		CandidateK: cfg.Retrieve.CandidateK(topK),
		Timeout:    time.Duration(cfg.Retrieve.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]queryResult, len(set.Results))
	for i, r := range set.Results {
		results[i] = queryResult{
			ID:          r.Document.ID,
			Similarity:  r.Similarity,
			RerankScore: r.RerankScore,
			Metadata:    r.Document.Metadata,
			Text:        r.Document.Text,
		}
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if set.RerankerFallback {
		fmt.Println("Note: reranker unavailable, showing similarity ordering.")
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (similarity: %.3f", i+1, r.ID, r.Similarity)
		if r.RerankScore != nil {
			fmt.Printf(", rerank: %.3f", *r.RerankScore)
		}
		fmt.Printf(") ---\n")

		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
