package loader

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

// loadPDF extracts one document per page. Pages that fail text extraction
// are skipped with a warning rather than failing the whole file; scanned
// PDFs without a text layer simply yield nothing.
func loadPDF(path string) ([]domain.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	docs := make([]domain.Document, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			logger.Warnf("skipping page %d of %s: %v", i, path, err)
			continue
		}
		docs = append(docs, domain.Document{
			ID:         documentID(path, i),
			Source:     path,
			Page:       i,
			TotalPages: total,
			Text:       text,
		})
	}
	return docs, nil
}
