package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"catalograg/config"
	"catalograg/internal/adapter/embedding"
	"catalograg/internal/adapter/index"
	"catalograg/internal/adapter/llm"
	"catalograg/internal/adapter/rerank"
	"catalograg/internal/adapter/session"
	"catalograg/internal/port"
)

// buildEmbedder constructs the configured embedding backend.
func buildEmbedder(cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "openai":
		if e.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(e.APIKeyEnv, e.Model, e.BaseURL)
		}
		return embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model)
	case "jina":
		return embedding.NewJinaEmbedder(e.APIKeyEnv, e.Model)
	case "ollama":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL)
	case "mock":
		dim := e.Dimension
		if dim <= 0 {
			dim = 256
		}
		return embedding.NewMockEmbedder(dim), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", e.Provider)
	}
}

// buildIndex opens the configured vector index. The embedder fixes the
// dimension; the index enforces it.
func buildIndex(ctx context.Context, cfg *config.Config, embedder port.Embedder) (port.VectorIndex, error) {
	i := cfg.Index
	switch i.Provider {
	case "bolt":
		return index.OpenBolt(i.Path, embedder.Dimension())
	case "memory":
		return index.NewMemoryIndex(embedder.Dimension()), nil
	case "qdrant":
		return index.OpenQdrant(ctx, index.QdrantConfig{
			URL:        i.URL,
			Collection: i.Collection,
			APIKey:     os.Getenv(i.APIKeyEnv),
			Dimension:  embedder.Dimension(),
		})
	default:
		return nil, fmt.Errorf("unknown index provider: %s", i.Provider)
	}
}

// buildReranker constructs the configured reranker, or nil when disabled.
func buildReranker(cfg *config.Config) (port.Reranker, error) {
	r := cfg.Reranker
	switch r.Provider {
	case "cohere":
		return rerank.NewCohereReranker(r.APIKeyEnv, r.Model)
	case "jina":
		return rerank.NewJinaReranker(r.APIKeyEnv, r.Model)
	case "lexical":
		return rerank.NewLexicalReranker(), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown reranker provider: %s", r.Provider)
	}
}

func buildSessions(cfg *config.Config) (port.SessionStore, error) {
	s := cfg.Session
	switch s.Store {
	case "memory", "":
		return session.NewMemoryStore(), nil
	case "redis":
		return session.NewRedisStore(s.RedisURL, time.Duration(s.TTLHours)*time.Hour)
	default:
		return nil, fmt.Errorf("unknown session store: %s", s.Store)
	}
}

func buildLLM(cfg *config.Config) (port.LLM, error) {
	l := cfg.LLM
	switch l.Provider {
	case "openai":
		return llm.NewOpenAIClient(l.APIKeyEnv, l.Model, l.BaseURL)
	case "ollama":
		return llm.NewOllamaClient(l.Model, l.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", l.Provider)
	}
}
