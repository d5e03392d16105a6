package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalograg/internal/domain"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) (*OpenAIEmbedder, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e := &OpenAIEmbedder{
		apiKey:    "test",
		model:     "test-model",
		baseURL:   srv.URL,
		dimension: 3,
		maxBatch:  100,
		client:    srv.Client(),
	}
	return e, srv
}

// fixedVectors assigns each known text a fixed vector so batch and single
// calls can be compared.
var fixedVectors = map[string][]float32{
	"alpha": {1, 0, 0},
	"beta":  {0, 1, 0},
	"gamma": {0, 0, 1},
}

func embeddingHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		resp := embeddingResponse{}
		for i, text := range req.Input {
			v, ok := fixedVectors[text]
			if !ok {
				t.Errorf("unexpected input text %q", text)
			}
			resp.Data = append(resp.Data, embeddingData{Embedding: v, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestEmbed_BatchMatchesSingle(t *testing.T) {
	e, _ := newTestEmbedder(t, embeddingHandler(t))
	ctx := context.Background()

	batched, err := e.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("batch embed: %v", err)
	}

	a, err := e.Embed(ctx, []string{"alpha"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, []string{"beta"})
	if err != nil {
		t.Fatal(err)
	}

	if len(batched) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(batched))
	}
	for i, v := range batched[0] {
		if v != a[0][i] {
			t.Errorf("batched[0][%d] = %f, single = %f", i, v, a[0][i])
		}
	}
	for i, v := range batched[1] {
		if v != b[0][i] {
			t.Errorf("batched[1][%d] = %f, single = %f", i, v, b[0][i])
		}
	}
}

func TestEmbed_EmptyTextRejected(t *testing.T) {
	e, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called for empty input")
	})

	_, err := e.Embed(context.Background(), []string{"alpha", "  "})
	if err == nil {
		t.Fatal("expected error for empty text")
	}
	if !errors.Is(err, domain.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	var embErr *domain.EmbeddingError
	if !errors.As(err, &embErr) {
		t.Errorf("expected EmbeddingError, got %T", err)
	}
}

func TestEmbed_BackendError(t *testing.T) {
	e, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := e.Embed(context.Background(), []string{"alpha"})
	var embErr *domain.EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"red shoes"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, []string{"red shoes"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("mock embedder not deterministic at %d", i)
		}
	}

	if _, err := e.Embed(ctx, []string{""}); !errors.Is(err, domain.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText from mock, got %v", err)
	}
}
