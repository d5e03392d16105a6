package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"catalograg/internal/adapter/catalog"
	"catalograg/internal/adapter/embedding"
	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// memIndex is an in-memory VectorIndex for tests. It honors the port
// contract: idempotent upserts, descending score with ascending ID
// tie-break, ErrIndexEmpty on empty queries.
type memIndex struct {
	mu      sync.Mutex
	entries map[string]port.VectorEntry
}

func newMemIndex() *memIndex {
	return &memIndex{entries: make(map[string]port.VectorEntry)}
}

func (m *memIndex) Upsert(_ context.Context, entries []port.VectorEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return nil
}

func (m *memIndex) Query(_ context.Context, vector []float32, topK int) ([]port.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil, domain.ErrIndexEmpty
	}

	hits := make([]port.VectorHit, 0, len(m.entries))
	for _, e := range m.entries {
		hits = append(hits, port.VectorHit{
			ID:       e.ID,
			Score:    cosine(vector, e.Vector),
			Text:     e.Text,
			Metadata: e.Metadata,
		})
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *memIndex) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *memIndex) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func productRow(index int, id, name, category, description string) catalog.Row {
	return catalog.Row{
		Index:  index,
		Source: "products.csv",
		Values: map[string]string{
			"product_id":   id,
			"product_name": name,
			"category":     category,
			"description":  description,
		},
	}
}

func testNormalizer() *catalog.Normalizer {
	return catalog.NewNormalizer(catalog.FieldMapping{
		IDField:        "product_id",
		TextFields:     []string{"product_name", "category", "description"},
		MetadataFields: []string{"product_name", "category"},
	})
}

func TestIngest_MalformedRowIsolated(t *testing.T) {
	var rows []catalog.Row
	for i := 0; i < 9; i++ {
		rows = append(rows, productRow(i, fmt.Sprintf("p%d", i), fmt.Sprintf("Product %d", i), "gear", "A fine product."))
	}
	// Missing identifier, must land in the report without sinking the run.
	rows = append(rows, productRow(9, "", "Nameless", "gear", "No id."))

	index := newMemIndex()
	ing := NewIngestor(testNormalizer(), embedding.NewMockEmbedder(8), index, 4, 2)

	report, err := ing.Ingest(context.Background(), rows)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Inserted != 9 {
		t.Errorf("Inserted = %d, want 9", report.Inserted)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(report.Errors))
	}
	if report.Errors[0].Row != 9 {
		t.Errorf("Errors[0].Row = %d, want 9", report.Errors[0].Row)
	}
	var malformed *domain.MalformedRecordError
	if !errors.As(report.Errors[0].Err, &malformed) {
		t.Errorf("Errors[0].Err = %v, want MalformedRecordError", report.Errors[0].Err)
	}

	count, err := index.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 9 {
		t.Errorf("index count = %d, want 9", count)
	}
}

func TestIngest_ReingestIdempotent(t *testing.T) {
	rows := []catalog.Row{
		productRow(0, "p1", "Trail Runner", "footwear", "Lightweight running shoe."),
		productRow(1, "p2", "City Walker", "footwear", "Everyday walking shoe."),
	}

	index := newMemIndex()
	ing := NewIngestor(testNormalizer(), embedding.NewMockEmbedder(8), index, 64, 1)

	ctx := context.Background()
	for pass := 0; pass < 2; pass++ {
		report, err := ing.Ingest(ctx, rows)
		if err != nil {
			t.Fatalf("pass %d: Ingest: %v", pass, err)
		}
		if report.Inserted != 2 {
			t.Errorf("pass %d: Inserted = %d, want 2", pass, report.Inserted)
		}
	}

	count, err := index.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("index count after re-ingest = %d, want 2", count)
	}
}

// poisonEmbedder fails any batch containing the poisoned text, and fails
// the poisoned text alone. Everything else embeds normally.
type poisonEmbedder struct {
	inner  port.Embedder
	poison string
}

func (e *poisonEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if strings.Contains(text, e.poison) {
			return nil, &domain.EmbeddingError{Cause: errors.New("backend rejected input")}
		}
	}
	return e.inner.Embed(ctx, texts)
}

func (e *poisonEmbedder) Dimension() int    { return e.inner.Dimension() }
func (e *poisonEmbedder) ModelName() string { return "poison" }

func TestIngest_PoisonedRowDoesNotSinkBatch(t *testing.T) {
	rows := []catalog.Row{
		productRow(0, "p1", "Trail Runner", "footwear", "Lightweight running shoe."),
		productRow(1, "p2", "Cursed Boot", "footwear", "POISON"),
		productRow(2, "p3", "City Walker", "footwear", "Everyday walking shoe."),
	}

	index := newMemIndex()
	emb := &poisonEmbedder{inner: embedding.NewMockEmbedder(8), poison: "POISON"}
	ing := NewIngestor(testNormalizer(), emb, index, 64, 1)

	report, err := ing.Ingest(context.Background(), rows)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", report.Inserted)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if len(report.Errors) != 1 || report.Errors[0].Row != 1 {
		t.Fatalf("Errors = %+v, want single error at row 1", report.Errors)
	}

	count, _ := index.Count(context.Background())
	if count != 2 {
		t.Errorf("index count = %d, want 2", count)
	}
}

func TestIngest_ProgressReportsCommittedBatches(t *testing.T) {
	var rows []catalog.Row
	for i := 0; i < 10; i++ {
		rows = append(rows, productRow(i, fmt.Sprintf("p%d", i), fmt.Sprintf("Product %d", i), "gear", "A fine product."))
	}

	ing := NewIngestor(testNormalizer(), embedding.NewMockEmbedder(8), newMemIndex(), 4, 1)

	var mu sync.Mutex
	var last int
	ing.Progress = func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 10 {
			t.Errorf("Progress total = %d, want 10", total)
		}
		last = done
	}

	if _, err := ing.Ingest(context.Background(), rows); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if last != 10 {
		t.Errorf("final Progress done = %d, want 10", last)
	}
}
