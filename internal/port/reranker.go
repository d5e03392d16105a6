package port

import "context"

// Reranker scores (query, candidate) pairs with a cross-encoder model.
type Reranker interface {
	// Rerank returns one score per candidate in input order; the caller
	// re-sorts. An empty candidate set is a benign boundary case and
	// yields an empty slice, not an error.
	Rerank(ctx context.Context, query string, candidates []string) ([]RerankScore, error)

	// ModelName returns the name of the reranking model.
	ModelName() string
}

// RerankScore is a relevance estimate for one candidate.
type RerankScore struct {
	Index int     // position in the input slice
	Score float64 // higher is more relevant
}
