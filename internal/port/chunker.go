package port

import "docrag/internal/domain"

type Chunker interface {
	Split(doc domain.Document) ([]domain.Chunk, error)
}
