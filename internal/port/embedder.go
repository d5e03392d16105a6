package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts, one vector per
	// input, order preserved. Batching must not change the result:
	// Embed(ctx, [a, b]) is pairwise identical to two single calls.
	// Empty input texts are rejected with domain.ErrEmptyText.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex stores and searches embedding vectors. It is the single
// source of truth for what is searchable.
type VectorIndex interface {
	// Upsert adds or replaces entries, idempotent per ID (last write
	// wins, whole-entry replacement). Entries are durable before Upsert
	// returns.
	Upsert(ctx context.Context, entries []VectorEntry) error

	// Query returns up to topK hits ordered by descending score, ties
	// broken by ascending ID. topK larger than the index is clamped.
	// An empty index yields domain.ErrIndexEmpty; a vector of the wrong
	// length yields domain.DimensionMismatchError.
	Query(ctx context.Context, vector []float32, topK int) ([]VectorHit, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	Close() error
}

// VectorEntry is a vector to be stored.
type VectorEntry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// VectorHit is a search result.
type VectorHit struct {
	ID       string
	Score    float64 // cosine similarity, higher is more similar
	Text     string
	Metadata map[string]string
}
