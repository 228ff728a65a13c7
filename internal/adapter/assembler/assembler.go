package assembler

import (
	"fmt"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const blockSeparator = "\n\n---\n\n"

var _ port.Assembler = (*CitationAssembler)(nil)

// CitationAssembler renders retrieved chunks as numbered context blocks.
// Each block carries a [n] marker that the answer can cite; the returned
// citation table resolves marker n to Citations[n-1].
type CitationAssembler struct{}

func NewCitationAssembler() *CitationAssembler {
	return &CitationAssembler{}
}

// Assemble renders chunks in rank order under the character bound. When the
// rendered context would exceed maxChars, whole chunks are dropped from the
// low-ranked end; a chunk is never truncated mid-text. maxChars <= 0 means
// unbounded.
func (a *CitationAssembler) Assemble(results []domain.ScoredChunk, maxChars int) domain.AssembledContext {
	if len(results) == 0 {
		return domain.AssembledContext{}
	}

	blocks := make([]string, 0, len(results))
	citations := make([]domain.Citation, 0, len(results))
	total := 0

	for _, res := range results {
		block := renderBlock(len(blocks)+1, res.Chunk)
		cost := len(block)
		if len(blocks) > 0 {
			cost += len(blockSeparator)
		}
		if maxChars > 0 && total+cost > maxChars {
			break
		}
		blocks = append(blocks, block)
		citations = append(citations, domain.Citation{
			Source: res.Chunk.Source,
			Page:   res.Chunk.Page,
		})
		total += cost
	}

	return domain.AssembledContext{
		Text:      strings.Join(blocks, blockSeparator),
		Citations: citations,
	}
}

func renderBlock(n int, c domain.Chunk) string {
	return fmt.Sprintf("[%d] (%s, page %d)\n%s", n, c.Source, c.Page, c.Text)
}
