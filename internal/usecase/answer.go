package usecase

import (
	"context"
	"fmt"
	"strings"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

const noResultsAnswer = "I couldn't find anything relevant in the product database."

const answerPromptFormat = `Use ONLY the following product information to answer the question.
If the answer is not in the context, say you don't know.

CONTEXT:
%s

QUESTION:
%s

ANSWER:`

// Answerer turns ranked retrieval results into a natural-language answer.
type Answerer struct {
	llm port.LLM
}

func NewAnswerer(llm port.LLM) *Answerer {
	return &Answerer{llm: llm}
}

// Answer prompts the LLM with the retrieved product context. An empty
// result set short-circuits without a model call.
func (a *Answerer) Answer(ctx context.Context, query string, results []domain.RetrievalResult) (string, error) {
	if len(results) == 0 {
		return noResultsAnswer, nil
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Document.Text
	}
	contextBlock := strings.Join(texts, "\n\n---\n\n")

	prompt := fmt.Sprintf(answerPromptFormat, contextBlock, query)

	answer, err := a.llm.Generate(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
