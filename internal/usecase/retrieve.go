package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

var (
	errNoReranker = errors.New("no reranker configured")
	errScoreCount = errors.New("reranker returned wrong number of scores")
	errScoreIndex = errors.New("reranker scores do not cover every candidate")
)

// RetrieveOptions bounds a retrieval run. CandidateK is how many
// similarity candidates feed the reranker; it is always at least TopK.
type RetrieveOptions struct {
	TopK          int
	CandidateK    int
	HistoryWindow int // turns folded into the query; 0 = all
	Timeout       time.Duration
}

// Retriever orchestrates the online pipeline: query construction -> embed
// -> index query -> optional rerank. It never mutates the index, so
// cancelling an in-flight request is always safe.
type Retriever struct {
	embedder port.Embedder
	index    port.VectorIndex
	reranker port.Reranker

	// inference bounds concurrent model calls (embed + rerank) across all
	// requests, so a burst of traffic queues instead of overwhelming the
	// inference backend.
	inference *semaphore.Weighted
}

// NewRetriever creates a retrieval pipeline. reranker may be nil, in
// which case requests asking for reranking fall back to similarity
// ordering with the fallback flagged.
func NewRetriever(embedder port.Embedder, index port.VectorIndex, reranker port.Reranker, maxInflight int) *Retriever {
	if maxInflight <= 0 {
		maxInflight = 8
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		reranker:  reranker,
		inference: semaphore.NewWeighted(int64(maxInflight)),
	}
}

// BuildQuery folds the most recent window of conversation history into a
// single retrieval query: oldest turn first, current query last. This is
// what lets a follow-up like "what about the blue one?" inherit its
// subject from the preceding turns without the embedder knowing anything
// about dialogue.
func BuildQuery(history []domain.ConversationTurn, current string, window int) string {
	if len(history) == 0 {
		return current
	}

	turns := history
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	var b strings.Builder
	for _, turn := range turns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	b.WriteString(current)
	return b.String()
}

// Retrieve runs the two-stage pipeline and returns ranked results.
// Fatal failures (embedding, empty index, dimension mismatch) surface as
// a single RetrievalError wrapping the cause. A reranker failure is not
// fatal: the similarity ordering is returned with RerankerFallback set.
func (u *Retriever) Retrieve(ctx context.Context, history []domain.ConversationTurn, query string, useReranker bool, opts RetrieveOptions) (*domain.RetrievalSet, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 4
	}
	candidateK := opts.CandidateK
	if candidateK < topK {
		candidateK = topK
	}

	queryText := BuildQuery(history, query, opts.HistoryWindow)

	vector, err := u.embedQuery(ctx, queryText)
	if err != nil {
		return nil, &domain.RetrievalError{Cause: err}
	}

	hits, err := u.index.Query(ctx, vector, candidateK)
	if err != nil {
		return nil, &domain.RetrievalError{Cause: err}
	}

	results := make([]domain.RetrievalResult, len(hits))
	for i, hit := range hits {
		results[i] = domain.RetrievalResult{
			Document: domain.Document{
				ID:       hit.ID,
				Text:     hit.Text,
				Metadata: hit.Metadata,
			},
			Similarity: hit.Score,
		}
	}

	set := &domain.RetrievalSet{Results: results}

	if useReranker {
		if err := u.rerank(ctx, queryText, set); err != nil {
			// Recoverable: keep similarity ordering, flag the fallback, and
			// leave every rerank score absent so results are never
			// partially scored.
			set.RerankerFallback = true
			for i := range set.Results {
				set.Results[i].RerankScore = nil
			}
		} else {
			set.Reranked = true
		}
	}

	if len(set.Results) > topK {
		set.Results = set.Results[:topK]
	}
	return set, nil
}

func (u *Retriever) embedQuery(ctx context.Context, queryText string) ([]float32, error) {
	if err := u.inference.Acquire(ctx, 1); err != nil {
		return nil, &domain.EmbeddingError{Cause: err}
	}
	defer u.inference.Release(1)

	vectors, err := u.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// rerank scores every candidate and re-sorts in place: rerank score
// descending, original similarity rank on ties. Reranking fully
// supersedes similarity ordering; the two scores are never mixed.
func (u *Retriever) rerank(ctx context.Context, queryText string, set *domain.RetrievalSet) error {
	if u.reranker == nil {
		return &domain.RerankerError{Cause: errNoReranker}
	}
	if len(set.Results) == 0 {
		return nil
	}

	texts := make([]string, len(set.Results))
	for i, r := range set.Results {
		texts[i] = r.Document.Text
	}

	if err := u.inference.Acquire(ctx, 1); err != nil {
		return &domain.RerankerError{Cause: err}
	}
	scores, err := u.reranker.Rerank(ctx, queryText, texts)
	u.inference.Release(1)
	if err != nil {
		return err
	}
	if len(scores) != len(set.Results) {
		return &domain.RerankerError{Cause: errScoreCount}
	}

	order := make([]int, len(set.Results))
	for i := range order {
		order[i] = i
	}
	// Every candidate must receive exactly one score; a backend echoing a
	// duplicate or out-of-range index is as broken as a short response.
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(set.Results) || set.Results[s.Index].RerankScore != nil {
			return &domain.RerankerError{Cause: errScoreIndex}
		}
		score := s.Score
		set.Results[s.Index].RerankScore = &score
	}

	// Stable on the original similarity rank, so equal rerank scores keep
	// their first-stage order.
	sort.SliceStable(order, func(a, b int) bool {
		return *set.Results[order[a]].RerankScore > *set.Results[order[b]].RerankScore
	})

	reordered := make([]domain.RetrievalResult, len(set.Results))
	for i, idx := range order {
		reordered[i] = set.Results[idx]
	}
	set.Results = reordered
	return nil
}
