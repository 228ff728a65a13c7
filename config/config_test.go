package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunking.Size != 1000 {
		t.Errorf("expected Chunking.Size=1000, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.Overlap != 100 {
		t.Errorf("expected Chunking.Overlap=100, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Embedding.BatchSize != 96 {
		t.Errorf("expected BatchSize=96, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Index.Metric != "cosine" {
		t.Errorf("expected Metric=cosine, got %s", cfg.Index.Metric)
	}
	if cfg.Context.MaxChars != 8000 {
		t.Errorf("expected MaxChars=8000, got %d", cfg.Context.MaxChars)
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
	configPath := filepath.Join(tmpDir, "docrag.yaml")

	content := `
chunking:
  size: 500
  overlap: 50
retrieve:
  top_k: 10
llm:
  structured: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunking.Size != 500 {
		t.Errorf("expected Chunking.Size=500, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.Overlap != 50 {
		t.Errorf("expected Chunking.Overlap=50, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if !cfg.LLM.Structured {
		t.Error("expected LLM.Structured=true")
	}
	// Untouched sections keep their defaults.
	if cfg.Embedding.Dimension != 1536 {
		t.Errorf("expected Dimension=1536, got %d", cfg.Embedding.Dimension)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docrag.yaml")

	content := `
context:
  max_chars: 4000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Context.MaxChars != 4000 {
		t.Errorf("expected MaxChars=4000, got %d", cfg.Context.MaxChars)
	}
}

func TestIndexDBPath(t *testing.T) {
	cfg := DefaultConfig()
	path := IndexDBPath("/home/user/project", cfg)
	expected := filepath.Join("/home/user/project", ".docrag", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Index.Path = "/var/lib/docrag/index.db"
	if got := IndexDBPath("/home/user/project", cfg); got != cfg.Index.Path {
		t.Errorf("expected absolute path unchanged, got %s", got)
	}
}
