package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the RAG pipeline.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Context   ContextConfig   `yaml:"context"`
	LLM       LLMConfig       `yaml:"llm"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkingConfig bounds document splitting. Sizes are measured in runes.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", "mock"
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"` // environment variable holding the key
	BaseURL        string `yaml:"base_url"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Path         string   `yaml:"path"` // bbolt file, relative to the root dir
	Collection   string   `yaml:"collection"`
	Metric       string   `yaml:"metric"` // "cosine", "dot", "euclidean"
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	Concurrency  int      `yaml:"concurrency"`   // bound on concurrent embedding calls
	ANNThreshold int      `yaml:"ann_threshold"` // reserved: entries above which an ANN index would apply
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK       int     `yaml:"top_k"`
	Rerank     bool    `yaml:"rerank"`
	RerankTopN int     `yaml:"rerank_top_n"` // candidates fetched before truncating to top_k
	MinScore   float64 `yaml:"min_score"`    // results below this score are dropped (0 = disabled)
	CacheSize  int     `yaml:"cache_size"`
	CacheTTL   int     `yaml:"cache_ttl_seconds"`
}

// ContextConfig bounds prompt context assembly.
type ContextConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// LLMConfig holds language model configuration.
type LLMConfig struct {
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	Structured     bool    `yaml:"structured"` // request {reasoning, answer} JSON output
}

// ServerConfig holds the HTTP service boundary configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Mode string `yaml:"mode"` // gin mode: "debug", "release", "test"
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 100,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			BaseURL:        "https://api.openai.com/v1",
			Dimension:      1536,
			BatchSize:      96,
			TimeoutSeconds: 60,
			MaxRetries:     3,
		},
		Index: IndexConfig{
			Path:        "index.db",
			Collection:  "docs",
			Metric:      "cosine",
			Includes:    []string{"**/*.md", "**/*.txt", "**/*.pdf"},
			Excludes:    []string{"**/node_modules/**", "**/.git/**", "**/vendor/**"},
			Concurrency: 4,
			// Exact kNN is used throughout; the threshold is a knob for an
			// ANN backend and has no effect yet.
			ANNThreshold: 100000,
		},
		Retrieve: RetrieveConfig{
			TopK:       5,
			Rerank:     false,
			RerankTopN: 20,
			MinScore:   0,
			CacheSize:  100,
			CacheTTL:   300,
		},
		Context: ContextConfig{
			MaxChars: 8000,
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			BaseURL:        "https://api.openai.com/v1",
			Temperature:    0,
			MaxTokens:      1024,
			TimeoutSeconds: 120,
			MaxRetries:     3,
			Structured:     false,
		},
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, layered over the defaults.
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

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docrag", "config.yaml")
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

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string, cfg *Config) string {
	if filepath.IsAbs(cfg.Index.Path) {
		return cfg.Index.Path
	}
	return filepath.Join(dir, ".docrag", cfg.Index.Path)
}

// EnsureDataDir ensures the .docrag directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docrag"), 0755)
}
