package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// CohereReranker scores (query, candidate) pairs with Cohere's hosted
// cross-encoder.
type CohereReranker struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// NewCohereReranker creates a new Cohere reranker.
func NewCohereReranker(apiKeyEnv, model string) (*CohereReranker, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	if model == "" {
		model = "rerank-english-v3.0"
	}

	return &CohereReranker{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.cohere.ai/v1",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// NewJinaReranker creates a reranker backed by Jina's rerank endpoint,
// which speaks the same request/response shape.
func NewJinaReranker(apiKeyEnv, model string) (*CohereReranker, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	if model == "" {
		model = "jina-reranker-v2-base-multilingual"
	}

	return &CohereReranker{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.jina.ai/v1",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Rerank returns one relevance score per candidate, in input order. The
// caller re-sorts; reranker scores fully supersede similarity scores and
// are never mixed with them.
func (r *CohereReranker) Rerank(ctx context.Context, query string, candidates []string) ([]port.RerankScore, error) {
	if len(candidates) == 0 {
		return []port.RerankScore{}, nil
	}

	// Cohere caps documents per request.
	const maxDocs = 1000
	if len(candidates) > maxDocs {
		candidates = candidates[:maxDocs]
	}

	reqBody := rerankRequest{
		Query:     query,
		Documents: candidates,
		Model:     r.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &domain.RerankerError{Cause: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &domain.RerankerError{Cause: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &domain.RerankerError{Cause: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RerankerError{Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.RerankerError{Cause: fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))}
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, &domain.RerankerError{Cause: fmt.Errorf("parse response: %w", err)}
	}

	if len(rerankResp.Results) != len(candidates) {
		return nil, &domain.RerankerError{Cause: fmt.Errorf("expected %d scores, got %d", len(candidates), len(rerankResp.Results))}
	}

	// The API returns results sorted by relevance; restore input order so
	// the contract stays caller-sorts.
	scores := make([]port.RerankScore, len(candidates))
	for _, res := range rerankResp.Results {
		if res.Index < 0 || res.Index >= len(scores) {
			return nil, &domain.RerankerError{Cause: fmt.Errorf("result index %d out of range", res.Index)}
		}
		scores[res.Index] = port.RerankScore{
			Index: res.Index,
			Score: res.RelevanceScore,
		}
	}

	return scores, nil
}

// ModelName returns the model name.
func (r *CohereReranker) ModelName() string {
	return r.model
}
