package assembler

import (
	"strings"
	"testing"

	"docrag/internal/domain"
)

func scored(source string, page int, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{Source: source, Page: page, Text: text},
		Score: score,
	}
}

func TestAssembleRendersMarkersAndCitations(t *testing.T) {
	a := NewCitationAssembler()
	ctx := a.Assemble([]domain.ScoredChunk{
		scored("guide.md", 1, "First passage.", 0.9),
		scored("manual.pdf", 7, "Second passage.", 0.8),
	}, 0)

	want := "[1] (guide.md, page 1)\nFirst passage.\n\n---\n\n[2] (manual.pdf, page 7)\nSecond passage."
	if ctx.Text != want {
		t.Errorf("rendered context:\n%q\nwant:\n%q", ctx.Text, want)
	}
	if len(ctx.Citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(ctx.Citations))
	}
	if ctx.Citations[0] != (domain.Citation{Source: "guide.md", Page: 1}) {
		t.Errorf("citation 1 = %+v", ctx.Citations[0])
	}
	if ctx.Citations[1] != (domain.Citation{Source: "manual.pdf", Page: 7}) {
		t.Errorf("citation 2 = %+v", ctx.Citations[1])
	}
}

func TestAssembleDropsWholeChunksToFit(t *testing.T) {
	a := NewCitationAssembler()
	chunks := []domain.ScoredChunk{
		scored("a.md", 1, strings.Repeat("x", 40), 0.9),
		scored("b.md", 1, strings.Repeat("y", 40), 0.8),
		scored("c.md", 1, strings.Repeat("z", 40), 0.7),
	}

	full := a.Assemble(chunks, 0)
	bound := len(full.Text) - 1
	trimmed := a.Assemble(chunks, bound)

	if len(trimmed.Citations) != 2 {
		t.Fatalf("got %d citations under bound, want 2", len(trimmed.Citations))
	}
	if len(trimmed.Text) > bound {
		t.Errorf("rendered %d chars, bound %d", len(trimmed.Text), bound)
	}
	if strings.Contains(trimmed.Text, "z") {
		t.Errorf("lowest-ranked chunk should be dropped whole, got:\n%s", trimmed.Text)
	}
	// The kept chunks survive untruncated.
	if !strings.Contains(trimmed.Text, strings.Repeat("x", 40)) {
		t.Errorf("top chunk truncated")
	}
	if !strings.Contains(trimmed.Text, strings.Repeat("y", 40)) {
		t.Errorf("second chunk truncated")
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	a := NewCitationAssembler()
	ctx := a.Assemble(nil, 1000)
	if ctx.Text != "" || len(ctx.Citations) != 0 {
		t.Errorf("empty input should assemble to nothing, got %+v", ctx)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	a := NewCitationAssembler()
	chunks := []domain.ScoredChunk{
		scored("a.md", 1, "alpha", 0.9),
		scored("b.md", 2, "beta", 0.8),
	}
	first := a.Assemble(chunks, 500)
	second := a.Assemble(chunks, 500)
	if first.Text != second.Text {
		t.Errorf("assembly not deterministic")
	}
}

func TestAssembleBoundTighterThanFirstChunk(t *testing.T) {
	a := NewCitationAssembler()
	ctx := a.Assemble([]domain.ScoredChunk{
		scored("a.md", 1, strings.Repeat("x", 100), 0.9),
	}, 10)
	if ctx.Text != "" || len(ctx.Citations) != 0 {
		t.Errorf("chunk exceeding the bound should be dropped, got %q", ctx.Text)
	}
}
