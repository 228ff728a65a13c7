package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts, in input order.
	// Inputs larger than the provider batch limit are split transparently.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedOne generates the embedding for a single text (queries).
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
