// Benchmark probes retrieval quality against a populated index: embeds a
// query, runs the similarity search and rates how related the matches are.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"catalograg/config"
	"catalograg/internal/adapter/embedding"
	"catalograg/internal/adapter/index"
	"catalograg/internal/port"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -q \"red running shoes\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model connection, vector index)")
		fmt.Println("  2. Semantic similarity (query vs catalog matches)")
		fmt.Println("  3. Latency (embed and search timings)")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
	} else {
		wd, _ := os.Getwd()
		cfg, err = config.LoadFromDir(wd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	embedder, idx, err := setup(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Semantic search not available: %v\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	fmt.Println("CATALOG RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	count, _ := idx.Count(ctx)
	fmt.Printf("Documents indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	embedStart := time.Now()
	vectors, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	embedTime := time.Since(embedStart)
	fmt.Printf("Query embedded: %d dimensions in %s\n\n", len(vectors[0]), embedTime.Round(time.Millisecond))

	searchStart := time.Now()
	hits, err := idx.Query(ctx, vectors[0], *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	searchTime := time.Since(searchStart)

	fmt.Printf("Top %d matches (search took %s):\n\n", len(hits), searchTime.Round(time.Millisecond))

	totalScore := 0.0
	for i, h := range hits {
		preview := strings.ReplaceAll(h.Text, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}

		totalScore += h.Score

		rating := "LOW"
		if h.Score > 0.7 {
			rating = "HIGH"
		} else if h.Score > 0.5 {
			rating = "GOOD"
		} else if h.Score > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, h.Score, h.ID)
		fmt.Printf("   %s\n\n", preview)
	}

	if len(hits) == 0 {
		fmt.Println("No matches returned.")
		return
	}

	avgScore := totalScore / float64(len(hits))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", hits[0].Score)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - retrieval working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or re-ingestion")
	}
}

func setup(ctx context.Context, cfg *config.Config) (port.Embedder, port.VectorIndex, error) {
	var embedder port.Embedder
	var err error

	switch cfg.Embedding.Provider {
	case "ollama":
		embedder, err = embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "openai":
		embedder, err = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model)
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("embedder init failed: %w", err)
	}

	var idx port.VectorIndex
	switch cfg.Index.Provider {
	case "bolt":
		idx, err = index.OpenBolt(cfg.Index.Path, embedder.Dimension())
	case "qdrant":
		idx, err = index.OpenQdrant(ctx, index.QdrantConfig{
			URL:        cfg.Index.URL,
			Collection: cfg.Index.Collection,
			APIKey:     os.Getenv(cfg.Index.APIKeyEnv),
			Dimension:  embedder.Dimension(),
		})
	default:
		return nil, nil, fmt.Errorf("unsupported index: %s", cfg.Index.Provider)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("index open failed: %w", err)
	}

	count, _ := idx.Count(ctx)
	if count == 0 {
		idx.Close()
		return nil, nil, fmt.Errorf("index is empty - run 'catalograg ingest' first")
	}

	return embedder, idx, nil
}
