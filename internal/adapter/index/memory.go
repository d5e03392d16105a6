package index

import (
	"context"
	"sync"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// MemoryIndex is a non-persistent VectorIndex. Everything lives in one
// map; a restart starts empty. Useful for demos and ephemeral runs.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]port.VectorEntry
}

func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dimension: dimension,
		entries:   make(map[string]port.VectorEntry),
	}
}

func (s *MemoryIndex) Upsert(ctx context.Context, entries []port.VectorEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if len(entry.Vector) != s.dimension {
			return &domain.DimensionMismatchError{Want: s.dimension, Got: len(entry.Vector)}
		}
	}
	for _, entry := range entries {
		s.entries[entry.ID] = entry
	}
	return nil
}

func (s *MemoryIndex) Query(ctx context.Context, vector []float32, topK int) ([]port.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) != s.dimension {
		return nil, &domain.DimensionMismatchError{Want: s.dimension, Got: len(vector)}
	}
	if len(s.entries) == 0 {
		return nil, domain.ErrIndexEmpty
	}

	hits := make([]port.VectorHit, 0, len(s.entries))
	for id, entry := range s.entries {
		hits = append(hits, port.VectorHit{
			ID:       id,
			Score:    cosineSimilarity(vector, entry.Vector),
			Text:     entry.Text,
			Metadata: entry.Metadata,
		})
	}

	sortHits(hits)

	if topK < 0 {
		topK = 0
	}
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

func (s *MemoryIndex) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *MemoryIndex) Close() error {
	return nil
}
