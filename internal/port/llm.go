package port

import (
	"context"

	"docrag/internal/domain"
)

// ChatClient is a language model chat endpoint.
type ChatClient interface {
	// Chat sends a system and user message and returns the raw completion.
	Chat(ctx context.Context, system, user string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// Generator invokes the language model with an assembled context and parses
// the cited answer.
type Generator interface {
	Generate(ctx context.Context, question string, context domain.AssembledContext) (domain.Answer, error)
}
