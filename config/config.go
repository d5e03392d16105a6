package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the catalog retrieval service.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reranker  RerankerConfig  `yaml:"reranker"`
	Index     IndexConfig     `yaml:"index"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	LLM       LLMConfig       `yaml:"llm"`
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "jina", "mock"
	Model     string `yaml:"model"`       // e.g. "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // environment variable holding the API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// RerankerConfig holds cross-encoder reranker configuration.
type RerankerConfig struct {
	Provider  string `yaml:"provider"` // "cohere", "jina", "lexical"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Provider   string `yaml:"provider"` // "bolt", "qdrant"
	Path       string `yaml:"path"`     // bolt database file
	URL        string `yaml:"url"`      // qdrant address
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
}

// IngestConfig configures dataset loading and row normalization.
// The field mapping is configuration, not core logic: swapping catalogs
// means editing these lists, not the normalizer.
type IngestConfig struct {
	DataDir        string   `yaml:"data_dir"`
	Includes       []string `yaml:"includes"` // glob patterns relative to data_dir
	Excludes       []string `yaml:"excludes"`
	IDField        string   `yaml:"id_field"`
	TextFields     []string `yaml:"text_fields"`     // concatenated into the embeddable text
	MetadataFields []string `yaml:"metadata_fields"` // carried as searchable metadata
	BatchSize      int      `yaml:"batch_size"`
	Workers        int      `yaml:"workers"`
}

// RetrieveConfig holds retrieval pipeline configuration.
type RetrieveConfig struct {
	TopK          int `yaml:"top_k"`
	Oversample    int `yaml:"oversample"`     // candidate_k = max(top_k*oversample, top_k+8)
	HistoryWindow int `yaml:"history_window"` // turns folded into the query; 0 = all
	TimeoutSecs   int `yaml:"timeout_secs"`   // per-request bound on embed/query/rerank
	MaxInflight   int `yaml:"max_inflight"`   // concurrent model inference calls
	SnippetLength int `yaml:"snippet_length"` // characters of text returned per hit
}

// LLMConfig holds answer-generation model configuration.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// ServerConfig holds HTTP transport configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SessionConfig selects the conversation history store.
type SessionConfig struct {
	Store    string `yaml:"store"` // "memory", "redis"
	RedisURL string `yaml:"redis_url"`
	TTLHours int    `yaml:"ttl_hours"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		Reranker: RerankerConfig{
			Provider:  "cohere",
			Model:     "rerank-english-v3.0",
			APIKeyEnv: "COHERE_API_KEY",
		},
		Index: IndexConfig{
			Provider:   "bolt",
			Path:       "catalog.db",
			Collection: "products",
		},
		Ingest: IngestConfig{
			DataDir:        "data",
			Includes:       []string{"**/*.csv"},
			IDField:        "product_id",
			TextFields:     []string{"product_name", "category", "description"},
			MetadataFields: []string{"product_name", "category", "brand", "price", "stock"},
			BatchSize:      64,
			Workers:        4,
		},
		Retrieve: RetrieveConfig{
			TopK:          4,
			Oversample:    4,
			HistoryWindow: 6,
			TimeoutSecs:   30,
			MaxInflight:   8,
			SnippetLength: 400,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Server: ServerConfig{
			Port: 8000,
		},
		Session: SessionConfig{
			Store:    "memory",
			TTLHours: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for catalograg.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "catalograg.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".catalograg", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CandidateK returns how many candidates the first retrieval stage fetches
// for a requested topK. Oversampling gives the reranker enough material to
// meaningfully reorder.
func (c *RetrieveConfig) CandidateK(topK int) int {
	oversample := c.Oversample
	if oversample <= 1 {
		oversample = 4
	}
	k := topK * oversample
	if k < topK+8 {
		k = topK + 8
	}
	return k
}
