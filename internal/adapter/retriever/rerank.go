package retriever

import (
	"context"
	"sort"

	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

var (
	_ port.Retriever = (*RerankedRetriever)(nil)
	_ port.Reranker  = (*LexicalReranker)(nil)
)

// RerankedRetriever wraps a retriever with a secondary scoring pass: it
// fetches topN candidates (topN >= k), rescores them, and truncates to k.
type RerankedRetriever struct {
	inner    port.Retriever
	reranker port.Reranker
	topN     int
}

func NewRerankedRetriever(inner port.Retriever, reranker port.Reranker, topN int) *RerankedRetriever {
	if topN <= 0 {
		topN = 20
	}
	return &RerankedRetriever{
		inner:    inner,
		reranker: reranker,
		topN:     topN,
	}
}

// Retrieve fetches candidates and reranks them. If reranking fails the
// original ordering is kept, truncated to k.
func (r *RerankedRetriever) Retrieve(ctx context.Context, query string, k int, filters map[string]string) ([]domain.ScoredChunk, error) {
	n := r.topN
	if n < k {
		n = k
	}

	candidates, err := r.inner.Retrieve(ctx, query, n, filters)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Chunk.Text
	}

	reranked, err := r.reranker.Rerank(query, texts)
	if err != nil {
		logger.Warnf("rerank with %s failed, keeping similarity order: %v", r.reranker.ModelName(), err)
		if len(candidates) > k {
			candidates = candidates[:k]
		}
		return candidates, nil
	}

	limit := k
	if limit > len(reranked) {
		limit = len(reranked)
	}
	results := make([]domain.ScoredChunk, 0, limit)
	for i := 0; i < limit; i++ {
		idx := reranked[i].Index
		if idx < len(candidates) {
			results = append(results, domain.ScoredChunk{
				Chunk: candidates[idx].Chunk,
				Score: reranked[i].Score,
			})
		}
	}
	return results, nil
}

// LexicalReranker rescores candidates by query term overlap. It is a pure
// function of the (query, text) pairs and carries no state between calls.
type LexicalReranker struct{}

func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

// Rerank scores documents by the fraction of query terms they contain.
// Equal scores keep the input order (stable sort), so upstream similarity
// ordering survives as the tie-break.
func (r *LexicalReranker) Rerank(query string, texts []string) ([]port.RerankedResult, error) {
	queryTerms := termSet(query)
	results := make([]port.RerankedResult, len(texts))

	if len(queryTerms) == 0 {
		for i := range texts {
			results[i] = port.RerankedResult{Index: i, Score: 1.0 - float64(i)*0.01}
		}
		return results, nil
	}

	for i, text := range texts {
		results[i] = port.RerankedResult{
			Index: i,
			Score: termOverlap(queryTerms, text),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func (r *LexicalReranker) ModelName() string {
	return "lexical-overlap"
}

// termSet lowercases and tokenizes on non-alphanumeric boundaries, keeping
// terms of two or more runes.
func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	var word []rune
	flush := func() {
		if len(word) >= 2 {
			terms[string(word)] = struct{}{}
		}
		word = word[:0]
	}
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			word = append(word, r)
		case r >= 'A' && r <= 'Z':
			word = append(word, r+('a'-'A'))
		default:
			flush()
		}
	}
	flush()
	return terms
}

func termOverlap(queryTerms map[string]struct{}, text string) float64 {
	docTerms := termSet(text)
	if len(docTerms) == 0 {
		return 0
	}
	matches := 0
	for term := range queryTerms {
		if _, ok := docTerms[term]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}
