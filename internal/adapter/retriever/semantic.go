package retriever

import (
	"context"
	"fmt"
	"strconv"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var _ port.Retriever = (*SemanticRetriever)(nil)

// SemanticRetriever embeds the query and searches the vector index.
type SemanticRetriever struct {
	index      port.VectorIndex
	embedder   port.Embedder
	collection string
	minScore   float64
}

func NewSemanticRetriever(index port.VectorIndex, embedder port.Embedder, collection string, minScore float64) *SemanticRetriever {
	return &SemanticRetriever{
		index:      index,
		embedder:   embedder,
		collection: collection,
		minScore:   minScore,
	}
}

// Retrieve returns the top-k chunks for the query, descending by
// similarity. An empty collection yields an empty result.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, k int, filters map[string]string) ([]domain.ScoredChunk, error) {
	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Search(r.collection, vector, k, filters)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.ScoredChunk, 0, len(results))
	for _, res := range results {
		if r.minScore > 0 && res.Score < r.minScore {
			continue
		}
		chunks = append(chunks, domain.ScoredChunk{
			Chunk: entryToChunk(res.Entry),
			Score: res.Score,
		})
	}
	return chunks, nil
}

// entryToChunk rebuilds chunk provenance from entry metadata.
func entryToChunk(e port.Entry) domain.Chunk {
	page, _ := strconv.Atoi(e.Metadata["page"])
	seq, _ := strconv.Atoi(e.Metadata["seq"])
	return domain.Chunk{
		ID:     e.ID,
		DocID:  e.Metadata["doc_id"],
		Source: e.Metadata["source"],
		Page:   page,
		Seq:    seq,
		Text:   e.Text,
	}
}
