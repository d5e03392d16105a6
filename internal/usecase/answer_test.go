package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"catalograg/internal/domain"
)

type stubLLM struct {
	reply  string
	err    error
	prompt string
}

func (s *stubLLM) Generate(_ context.Context, _, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func (s *stubLLM) ModelName() string { return "stub" }

func TestAnswer_PromptContainsContextAndQuery(t *testing.T) {
	llm := &stubLLM{reply: "The Trail Runner is in stock."}
	a := NewAnswerer(llm)

	results := []domain.RetrievalResult{
		{Document: domain.Document{ID: "p1", Text: "product_name: Trail Runner"}},
		{Document: domain.Document{ID: "p2", Text: "product_name: City Walker"}},
	}

	answer, err := a.Answer(context.Background(), "is the trail runner in stock?", results)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "The Trail Runner is in stock." {
		t.Errorf("answer = %q", answer)
	}

	if !strings.Contains(llm.prompt, "product_name: Trail Runner\n\n---\n\nproduct_name: City Walker") {
		t.Errorf("prompt missing separator-joined context:\n%s", llm.prompt)
	}
	if !strings.Contains(llm.prompt, "is the trail runner in stock?") {
		t.Errorf("prompt missing question:\n%s", llm.prompt)
	}
	if !strings.Contains(llm.prompt, "Use ONLY the following product information") {
		t.Errorf("prompt missing grounding instruction:\n%s", llm.prompt)
	}
}

func TestAnswer_EmptyResultsSkipsModel(t *testing.T) {
	llm := &stubLLM{err: errors.New("must not be called")}
	a := NewAnswerer(llm)

	answer, err := a.Answer(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != noResultsAnswer {
		t.Errorf("answer = %q, want %q", answer, noResultsAnswer)
	}
	if llm.prompt != "" {
		t.Error("LLM was called for an empty result set")
	}
}

func TestAnswer_GenerateFailure(t *testing.T) {
	llm := &stubLLM{err: errors.New("backend down")}
	a := NewAnswerer(llm)

	_, err := a.Answer(context.Background(), "q", []domain.RetrievalResult{
		{Document: domain.Document{ID: "p1", Text: "text"}},
	})
	if err == nil {
		t.Fatal("Answer: got nil error")
	}
}
