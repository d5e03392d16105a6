package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalograg/internal/domain"
)

func newTestReranker(t *testing.T, handler http.HandlerFunc) *CohereReranker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &CohereReranker{
		apiKey:  "test",
		model:   "test-rerank",
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func TestRerank_ScoresInInputOrder(t *testing.T) {
	r := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
		var body rerankRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		// Respond sorted by relevance, like the real API does.
		resp := rerankResponse{Results: []rerankResult{
			{Index: 2, RelevanceScore: 0.9},
			{Index: 0, RelevanceScore: 0.5},
			{Index: 1, RelevanceScore: 0.1},
		}}
		json.NewEncoder(w).Encode(resp)
	})

	scores, err := r.Rerank(context.Background(), "red sneakers", []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}

	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	for i, s := range scores {
		if s.Index != i {
			t.Errorf("score %d has index %d, want input order", i, s.Index)
		}
	}
	if scores[2].Score != 0.9 || scores[0].Score != 0.5 || scores[1].Score != 0.1 {
		t.Errorf("scores not mapped back to input positions: %+v", scores)
	}
}

func TestRerank_EmptyCandidatesIsNoOp(t *testing.T) {
	r := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("backend must not be called for empty candidates")
	})

	scores, err := r.Rerank(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("empty candidates must not error: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("expected empty score slice, got %d", len(scores))
	}
}

func TestRerank_BackendFailure(t *testing.T) {
	r := newTestReranker(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := r.Rerank(context.Background(), "q", []string{"a"})
	var rerr *domain.RerankerError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RerankerError, got %v", err)
	}
}

func TestLexicalReranker(t *testing.T) {
	r := NewLexicalReranker()

	scores, err := r.Rerank(context.Background(), "red running shoes", []string{
		"red shoes for running",
		"blue winter jacket",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0].Score <= scores[1].Score {
		t.Errorf("expected overlap candidate to outscore unrelated one: %+v", scores)
	}

	empty, err := r.Rerank(context.Background(), "q", nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty candidates should be a no-op, got %v %v", empty, err)
	}
}

func TestLexicalReranker_PluralFolding(t *testing.T) {
	r := NewLexicalReranker()

	scores, err := r.Rerank(context.Background(), "hiking boots", []string{
		"hiking boot with ankle support",
		"dress boot polish",
	})
	if err != nil {
		t.Fatal(err)
	}
	// "boots" folds to "boot", so both query terms hit the first candidate.
	if scores[0].Score != 1.0 {
		t.Errorf("scores[0] = %v, want 1.0", scores[0].Score)
	}
	if scores[1].Score >= scores[0].Score {
		t.Errorf("partial match outscored full match: %+v", scores)
	}
}
