package cli

import (
	"fmt"
	"time"

	"docrag/config"
	"docrag/internal/adapter/assembler"
	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/index"
	"docrag/internal/adapter/llm"
	"docrag/internal/adapter/loader"
	"docrag/internal/adapter/retriever"
	"docrag/internal/domain"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// newEmbedder builds the configured embedding provider. The "mock" provider
// exists for offline smoke tests.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	if cfg.Embedding.Provider == "mock" {
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	}
	return embedding.NewOpenAIEmbedder(embedding.Options{
		Model:      cfg.Embedding.Model,
		APIKeyEnv:  cfg.Embedding.APIKeyEnv,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimension:  cfg.Embedding.Dimension,
		BatchSize:  cfg.Embedding.BatchSize,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Embedding.MaxRetries,
	})
}

func openIndex(dir string, cfg *config.Config) (*index.BoltIndex, error) {
	if err := config.EnsureDataDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return index.NewBoltIndex(config.IndexDBPath(dir, cfg))
}

func newIngestor(cfg *config.Config, idx *index.BoltIndex, emb port.Embedder) (*usecase.Ingestor, error) {
	split, err := chunker.NewRecursiveSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	metric, err := domain.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return nil, err
	}
	return usecase.NewIngestor(usecase.IngestorOptions{
		Walker:      loader.NewWalker(cfg.Index.Includes, cfg.Index.Excludes),
		Loader:      loader.NewFileLoader(),
		Chunker:     split,
		Embedder:    emb,
		Index:       idx,
		Collection:  cfg.Index.Collection,
		Metric:      metric,
		Concurrency: cfg.Index.Concurrency,
	}), nil
}

func newRetriever(cfg *config.Config, idx *index.BoltIndex, emb port.Embedder) port.Retriever {
	var r port.Retriever = retriever.NewSemanticRetriever(idx, emb, cfg.Index.Collection, cfg.Retrieve.MinScore)
	if cfg.Retrieve.Rerank {
		r = retriever.NewRerankedRetriever(r, retriever.NewLexicalReranker(), cfg.Retrieve.RerankTopN)
	}
	return r
}

func newAsker(cfg *config.Config, idx *index.BoltIndex, emb port.Embedder) (*usecase.Asker, error) {
	chat, err := llm.NewOpenAIChat(llm.Options{
		Model:       cfg.LLM.Model,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	return usecase.NewAsker(usecase.AskerOptions{
		Retriever:  newRetriever(cfg, idx, emb),
		Assembler:  assembler.NewCitationAssembler(),
		Generator:  llm.NewGenerator(chat, cfg.LLM.Structured),
		Index:      idx,
		Answers:    cache.NewAnswerCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTL)*time.Second),
		Collection: cfg.Index.Collection,
		TopK:       cfg.Retrieve.TopK,
		MaxChars:   cfg.Context.MaxChars,
	}), nil
}
