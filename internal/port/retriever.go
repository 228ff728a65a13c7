package port

import (
	"context"

	"docrag/internal/domain"
)

// Retriever returns the top-k most relevant chunks for a query.
type Retriever interface {
	// Retrieve embeds the query and searches the index. An empty collection
	// yields an empty result, not an error.
	Retrieve(ctx context.Context, query string, k int, filters map[string]string) ([]domain.ScoredChunk, error)
}

// Reranker scores query-document pairs for relevance. Implementations must
// be pure functions of the (query, text) pairs.
type Reranker interface {
	// Rerank returns results sorted by relevance score (highest first).
	Rerank(query string, texts []string) ([]RerankedResult, error)

	// ModelName returns the name of the reranking model.
	ModelName() string
}

// RerankedResult is a rescored document.
type RerankedResult struct {
	Index int     // Original index in the input slice
	Score float64 // Relevance score (higher is better)
}
