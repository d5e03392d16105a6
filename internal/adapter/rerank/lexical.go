package rerank

import (
	"context"

	"catalograg/internal/port"
)

// LexicalReranker scores candidates by term overlap with the query. A
// cheap stand-in when no cross-encoder backend is configured. Terms are
// stopword-filtered and plural-folded before matching.
type LexicalReranker struct {
	tokenizer *tokenizer
}

// NewLexicalReranker creates a new lexical reranker.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{tokenizer: newTokenizer()}
}

// Rerank performs term-overlap scoring, one score per candidate in input
// order.
func (r *LexicalReranker) Rerank(_ context.Context, query string, candidates []string) ([]port.RerankScore, error) {
	if len(candidates) == 0 {
		return []port.RerankScore{}, nil
	}

	queryTerms := r.tokenizer.terms(query)

	scores := make([]port.RerankScore, len(candidates))
	for i, candidate := range candidates {
		score := 0.0
		if len(queryTerms) > 0 {
			score = r.termOverlap(queryTerms, candidate)
		}
		scores[i] = port.RerankScore{Index: i, Score: score}
	}

	return scores, nil
}

// ModelName returns the model name.
func (r *LexicalReranker) ModelName() string {
	return "lexical-overlap"
}

func (r *LexicalReranker) termOverlap(queryTerms map[string]int, candidate string) float64 {
	candidateTerms := r.tokenizer.terms(candidate)
	if len(candidateTerms) == 0 {
		return 0
	}

	matches := 0
	for term := range queryTerms {
		if _, exists := candidateTerms[term]; exists {
			matches++
		}
	}

	return float64(matches) / float64(len(queryTerms))
}
