package usecase

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/adapter/cache"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

// Asker runs the question answering pipeline: retrieve, assemble, generate.
type Asker struct {
	retriever  port.Retriever
	assembler  port.Assembler
	generator  port.Generator
	index      port.VectorIndex
	answers    *cache.AnswerCache
	collection string
	topK       int
	maxChars   int
}

type AskerOptions struct {
	Retriever  port.Retriever
	Assembler  port.Assembler
	Generator  port.Generator
	Index      port.VectorIndex
	Answers    *cache.AnswerCache
	Collection string
	TopK       int
	MaxChars   int
}

func NewAsker(opts AskerOptions) *Asker {
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Asker{
		retriever:  opts.Retriever,
		assembler:  opts.Assembler,
		generator:  opts.Generator,
		index:      opts.Index,
		answers:    opts.Answers,
		collection: opts.Collection,
		topK:       topK,
		maxChars:   opts.MaxChars,
	}
}

// Retrieve returns the raw top-k matches without generation, for the
// retrieval-only surface.
func (a *Asker) Retrieve(ctx context.Context, question string, k int, filters map[string]string) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidArgument)
	}
	if k <= 0 {
		k = a.topK
	}
	return a.retriever.Retrieve(ctx, question, k, filters)
}

// Ask answers the question from the indexed corpus. Retrieval and
// generation errors propagate unchanged; an answer the context cannot
// support comes back with the Unsupported flag set, not as an error.
func (a *Asker) Ask(ctx context.Context, question string, k int, filters map[string]string) (domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidArgument)
	}
	if k <= 0 {
		k = a.topK
	}

	gen := a.index.Generation()
	if a.answers != nil && len(filters) == 0 {
		if answer, ok := a.answers.Get(a.collection, question, k, gen); ok {
			logger.Infow("answer cache hit", "collection", a.collection, "top_k", k)
			return answer, nil
		}
	}

	results, err := a.retriever.Retrieve(ctx, question, k, filters)
	if err != nil {
		return domain.Answer{}, err
	}

	assembled := a.assembler.Assemble(results, a.maxChars)
	answer, err := a.generator.Generate(ctx, question, assembled)
	if err != nil {
		return domain.Answer{}, err
	}

	if a.answers != nil && len(filters) == 0 {
		a.answers.Put(a.collection, question, k, gen, answer)
	}
	return answer, nil
}
