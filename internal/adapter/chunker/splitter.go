package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
)

// Separator priority: paragraph breaks, line breaks, sentence punctuation,
// whitespace, then a raw rune cut as the last resort.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// RecursiveSplitter splits documents into chunks of at most maxSize runes,
// preferring natural boundaries. Separators stay attached to the preceding
// piece, so concatenating the chunks (minus overlap) reconstructs the
// original text exactly.
type RecursiveSplitter struct {
	maxSize int
	overlap int
}

// NewRecursiveSplitter validates the size bounds. overlap must be in
// [0, maxSize).
func NewRecursiveSplitter(maxSize, overlap int) (*RecursiveSplitter, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidConfiguration, overlap, maxSize)
	}
	return &RecursiveSplitter{maxSize: maxSize, overlap: overlap}, nil
}

// Split produces the chunks of doc.Text. Every chunk, overlap included, is
// at most maxSize runes. Empty or whitespace-only documents fail with
// domain.ErrEmptyDocument; callers that want to skip them must do so
// explicitly.
func (s *RecursiveSplitter) Split(doc domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: %s (page %d)", domain.ErrEmptyDocument, doc.Source, doc.Page)
	}

	// Base pieces are cut against a reduced budget so the overlap prefix
	// never pushes a chunk past maxSize.
	budget := s.maxSize - s.overlap
	pieces := splitBySeparators(doc.Text, separators, budget)

	chunks := make([]domain.Chunk, 0, len(pieces))
	offset := 0
	for i, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		text := piece
		start := offset

		if i > 0 && s.overlap > 0 {
			prefix := runeSuffix(pieces[i-1], s.overlap)
			text = prefix + piece
			start = offset - utf8.RuneCountInString(prefix)
		}

		chunks = append(chunks, domain.Chunk{
			ID:     chunkID(doc.ID, start, offset+pieceLen),
			DocID:  doc.ID,
			Source: doc.Source,
			Page:   doc.Page,
			Seq:    i,
			Start:  start,
			End:    offset + pieceLen,
			Text:   text,
		})
		offset += pieceLen
	}

	return chunks, nil
}

// splitBySeparators cuts text into pieces of at most budget runes. At each
// level only the pieces still over budget are split further, which keeps
// cuts at the most natural boundary available.
func splitBySeparators(text string, seps []string, budget int) []string {
	if utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardCut(text, budget)
	}

	sep := seps[0]
	parts := splitAfter(text, sep)
	if len(parts) == 1 {
		return splitBySeparators(text, seps[1:], budget)
	}

	// Greedily merge adjacent parts while they fit the budget.
	var pieces []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, part := range parts {
		partLen := utf8.RuneCountInString(part)
		if partLen > budget {
			flush()
			pieces = append(pieces, splitBySeparators(part, seps[1:], budget)...)
			continue
		}
		if currentLen+partLen > budget {
			flush()
		}
		current.WriteString(part)
		currentLen += partLen
	}
	flush()

	return pieces
}

// splitAfter splits text on sep keeping sep attached to the preceding part,
// so the concatenation of parts equals text.
func splitAfter(text, sep string) []string {
	return strings.SplitAfter(text, sep)
}

// hardCut slices text into budget-sized rune windows.
func hardCut(text string, budget int) []string {
	runes := []rune(text)
	var pieces []string
	for start := 0; start < len(runes); start += budget {
		end := start + budget
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// runeSuffix returns the last n runes of s.
func runeSuffix(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}

func chunkID(docID string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", docID, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
