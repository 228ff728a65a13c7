package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var _ port.Loader = (*FileLoader)(nil)

// FileLoader reads documents from disk, dispatching on file extension.
// Text and markdown files load as a single page; PDFs load page by page so
// citations can point at the page that answered.
type FileLoader struct{}

func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

func (l *FileLoader) Load(path string) ([]domain.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	default:
		return loadText(path)
	}
}

func loadText(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return []domain.Document{{
		ID:         documentID(path, 1),
		Source:     path,
		Page:       1,
		TotalPages: 1,
		Text:       string(data),
	}}, nil
}

func documentID(source string, page int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", source, page)))
	return hex.EncodeToString(sum[:8])
}
