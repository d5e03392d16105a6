package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Embedding.Dimension != 1536 {
		t.Errorf("expected Dimension=1536, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Retrieve.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.Oversample != 4 {
		t.Errorf("expected Oversample=4, got %d", cfg.Retrieve.Oversample)
	}
	if cfg.Index.Provider != "bolt" {
		t.Errorf("expected bolt index provider, got %s", cfg.Index.Provider)
	}
	if cfg.Session.Store != "memory" {
		t.Errorf("expected memory session store, got %s", cfg.Session.Store)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "catalograg.yaml")

	content := `
embedding:
  dimension: 768
  model: nomic-embed-text
retrieve:
  top_k: 10
  history_window: 2
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.Dimension != 768 {
		t.Errorf("expected Dimension=768, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.HistoryWindow != 2 {
		t.Errorf("expected HistoryWindow=2, got %d", cfg.Retrieve.HistoryWindow)
	}
	// Untouched sections keep defaults.
	if cfg.Reranker.Provider != "cohere" {
		t.Errorf("expected default reranker provider, got %s", cfg.Reranker.Provider)
	}
}

func TestCandidateK(t *testing.T) {
	cfg := DefaultConfig().Retrieve

	if got := cfg.CandidateK(4); got != 16 {
		t.Errorf("expected candidate_k=16 for top_k=4, got %d", got)
	}
	// Floor kicks in for tiny topK.
	if got := cfg.CandidateK(1); got != 9 {
		t.Errorf("expected candidate_k=9 for top_k=1, got %d", got)
	}
}
