package index

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")
	keyDimension  = []byte("dimension")
)

// BoltIndex implements port.VectorIndex on BoltDB. Search is brute-force
// cosine over an in-memory cache; persistence and entry atomicity come
// from bolt transactions. Good for catalogs up to the low hundreds of
// thousands of entries; the Qdrant backend covers anything bigger.
type BoltIndex struct {
	db        *bbolt.DB
	dimension int

	mu      sync.RWMutex
	vectors map[string]cachedEntry
}

type cachedEntry struct {
	vector   []float32
	text     string
	metadata map[string]string
}

type storedEntry struct {
	Vector   []float32         `json:"v"`
	Text     string            `json:"t"`
	Metadata map[string]string `json:"m,omitempty"`
}

// OpenBolt opens (or creates) a bolt-backed index at path. The index
// records its dimension on first open; reopening with a different
// dimension fails, since that means the configured embedder changed
// under a built index.
func OpenBolt(path string, dimension int) (*BoltIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}

		if stored := meta.Get(keyDimension); stored != nil {
			got := int(binary.BigEndian.Uint32(stored))
			if got != dimension {
				return &domain.DimensionMismatchError{Want: got, Got: dimension}
			}
			return nil
		}

		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(dimension))
		return meta.Put(keyDimension, buf)
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	idx := &BoltIndex{
		db:        db,
		dimension: dimension,
		vectors:   make(map[string]cachedEntry),
	}

	if err := idx.loadEntries(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load entries: %w", err)
	}

	return idx, nil
}

func (s *BoltIndex) loadEntries() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.vectors[string(k)] = cachedEntry{
				vector:   stored.Vector,
				text:     stored.Text,
				metadata: stored.Metadata,
			}
			return nil
		})
	})
}

// Upsert adds or replaces entries. The whole batch commits in one bolt
// transaction, so a crash leaves either none or all of it visible.
func (s *BoltIndex) Upsert(ctx context.Context, entries []port.VectorEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Validate and encode before touching the lock or the db; bolt
	// serializes writers itself, so the lock only guards the query cache.
	encoded := make([][]byte, len(entries))
	for i, entry := range entries {
		if len(entry.Vector) != s.dimension {
			return &domain.DimensionMismatchError{Want: s.dimension, Got: len(entry.Vector)}
		}

		data, err := json.Marshal(storedEntry{
			Vector:   entry.Vector,
			Text:     entry.Text,
			Metadata: entry.Metadata,
		})
		if err != nil {
			return err
		}
		encoded[i] = data
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("entries bucket not found")
		}

		for i, entry := range entries {
			if err := b.Put([]byte(entry.ID), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Refresh the cache only after the transaction is durable.
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.vectors[entry.ID] = cachedEntry{
			vector:   entry.Vector,
			text:     entry.Text,
			metadata: entry.Metadata,
		}
	}
	return nil
}

// Query finds the topK most similar entries by cosine similarity.
func (s *BoltIndex) Query(ctx context.Context, vector []float32, topK int) ([]port.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) != s.dimension {
		return nil, &domain.DimensionMismatchError{Want: s.dimension, Got: len(vector)}
	}

	if len(s.vectors) == 0 {
		return nil, domain.ErrIndexEmpty
	}

	hits := make([]port.VectorHit, 0, len(s.vectors))
	for id, entry := range s.vectors {
		hits = append(hits, port.VectorHit{
			ID:       id,
			Score:    cosineSimilarity(vector, entry.vector),
			Text:     entry.text,
			Metadata: entry.metadata,
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

// Count returns the number of stored entries.
func (s *BoltIndex) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// Delete removes entries by ID.
func (s *BoltIndex) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}

		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.vectors, id)
		}
		return nil
	})
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}

// sortHits orders hits by descending score, ascending ID on ties. Every
// backend sorts this way so results stay deterministic across backends.
func sortHits(hits []port.VectorHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
