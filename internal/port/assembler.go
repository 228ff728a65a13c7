package port

import "docrag/internal/domain"

// Assembler concatenates retrieved chunks into a bounded, citation-marked
// prompt context. Output is deterministic given identical input ordering.
type Assembler interface {
	Assemble(results []domain.ScoredChunk, maxChars int) domain.AssembledContext
}
