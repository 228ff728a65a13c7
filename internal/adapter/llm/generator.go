package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const answerSystemPrompt = `You are a documentation assistant. Answer the question using only the provided context passages. Cite every claim with the marker of the passage that supports it, written as [n]. If the context does not contain the answer, say so plainly.`

const structuredSystemPrompt = answerSystemPrompt + `

Respond with a single JSON object with exactly two keys in this order:
{"reasoning": "<how the context supports the answer>", "answer": "<the answer with [n] citations>"}
No markdown fences, no extra keys.`

// structuredAttempts bounds re-sampling when the model returns a payload
// that fails schema or key-order validation.
const structuredAttempts = 3

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

var _ port.Generator = (*Generator)(nil)

// Generator produces a cited answer from an assembled context. In
// structured mode the model must return {"reasoning", "answer"} with the
// keys in that order; out-of-order or malformed payloads are re-sampled a
// bounded number of times and never accepted silently.
type Generator struct {
	chat       port.ChatClient
	structured bool
}

func NewGenerator(chat port.ChatClient, structured bool) *Generator {
	return &Generator{chat: chat, structured: structured}
}

func (g *Generator) Generate(ctx context.Context, question string, assembled domain.AssembledContext) (domain.Answer, error) {
	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", assembled.Text, question)

	var text string
	var err error
	if g.structured {
		text, err = g.generateStructured(ctx, user)
	} else {
		text, err = g.chat.Chat(ctx, answerSystemPrompt, user)
	}
	if err != nil {
		return domain.Answer{}, err
	}

	answer := domain.Answer{Text: strings.TrimSpace(text)}
	answer.Citations = resolveCitations(answer.Text, assembled.Citations)
	if answer.Text != "" && len(answer.Citations) == 0 {
		answer.Unsupported = true
	}
	return answer, nil
}

func (g *Generator) generateStructured(ctx context.Context, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < structuredAttempts; attempt++ {
		raw, err := g.chat.Chat(ctx, structuredSystemPrompt, user)
		if err != nil {
			return "", err
		}
		answer, err := parseStructured(raw)
		if err == nil {
			return answer, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: structured output rejected after %d attempts: %v",
		domain.ErrGenerationFailed, structuredAttempts, lastErr)
}

// parseStructured validates the raw payload against the declared schema,
// including key order: "reasoning" must precede "answer". Extra keys and
// reordered keys are rejected.
func parseStructured(raw string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(stripFences(raw)))

	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("not a JSON object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", fmt.Errorf("not a JSON object: got %v", tok)
	}

	for _, want := range []string{"reasoning", "answer"} {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("missing %q key: %w", want, err)
		}
		key, ok := tok.(string)
		if !ok || key != want {
			return "", fmt.Errorf("expected key %q, got %v", want, tok)
		}
		if want == "answer" {
			var answer string
			if err := dec.Decode(&answer); err != nil {
				return "", fmt.Errorf("answer is not a string: %w", err)
			}
			return answer, checkObjectEnd(dec)
		}
		var reasoning json.RawMessage
		if err := dec.Decode(&reasoning); err != nil {
			return "", fmt.Errorf("invalid %q value: %w", want, err)
		}
	}
	return "", fmt.Errorf("unreachable")
}

func checkObjectEnd(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("unterminated object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '}' {
		return fmt.Errorf("unexpected extra key %v", tok)
	}
	return nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one despite the instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// resolveCitations maps [n] markers in the answer to the citation table.
// Markers out of range are ignored; each citation appears once, in first
// mention order.
func resolveCitations(text string, table []domain.Citation) []domain.Citation {
	matches := citationMarker.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var citations []domain.Citation
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(table) || seen[n] {
			continue
		}
		seen[n] = true
		citations = append(citations, table[n-1])
	}
	return citations
}
