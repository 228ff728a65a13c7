package port

import "docrag/internal/domain"

// Loader reads source files into Documents. Multi-page formats produce one
// Document per page so citations can point at the page level.
type Loader interface {
	Load(path string) ([]domain.Document, error)
}
