package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"docrag/internal/domain"
)

func chatServer(t *testing.T, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		handler(w, req)
	}))
}

func reply(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(chatResponse{
		Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}},
	})
}

func TestChatSendsMessagesAndReturnsContent(t *testing.T) {
	var got chatRequest
	srv := chatServer(t, func(w http.ResponseWriter, req chatRequest) {
		got = req
		reply(w, "the completion")
	})
	defer srv.Close()

	c, err := NewOpenAIChat(Options{Model: "test-model", BaseURL: srv.URL, Temperature: 0.2, MaxTokens: 64})
	if err != nil {
		t.Fatal(err)
	}
	content, err := c.Chat(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if content != "the completion" {
		t.Errorf("content = %q", content)
	}
	if got.Model != "test-model" || len(got.Messages) != 2 {
		t.Errorf("request = %+v", got)
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "system prompt" {
		t.Errorf("system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "user prompt" {
		t.Errorf("user message = %+v", got.Messages[1])
	}
}

func TestChatRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, req chatRequest) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		reply(w, "recovered")
	})
	defer srv.Close()

	c, err := NewOpenAIChat(Options{Model: "m", BaseURL: srv.URL, MaxRetries: 3})
	if err != nil {
		t.Fatal(err)
	}
	c.policy.BaseDelay = time.Millisecond

	content, err := c.Chat(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Chat after retry: %v", err)
	}
	if content != "recovered" {
		t.Errorf("content = %q", content)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestChatExhaustionIsGenerationFailed(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, req chatRequest) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	c, err := NewOpenAIChat(Options{Model: "m", BaseURL: srv.URL, MaxRetries: 2})
	if err != nil {
		t.Fatal(err)
	}
	c.policy.BaseDelay = time.Millisecond

	_, err = c.Chat(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("got %v, want ErrGenerationFailed", err)
	}
}

func TestChatMissingAPIKey(t *testing.T) {
	t.Setenv("DOCRAG_TEST_MISSING_KEY", "")
	_, err := NewOpenAIChat(Options{Model: "m", APIKeyEnv: "DOCRAG_TEST_MISSING_KEY"})
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("got %v, want ErrInvalidConfiguration", err)
	}
}

// scriptedChat returns canned completions in order, repeating the last one.
type scriptedChat struct {
	replies []string
	err     error
	calls   int
	systems []string
}

func (s *scriptedChat) Chat(_ context.Context, system, _ string) (string, error) {
	s.systems = append(s.systems, system)
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	i := s.calls - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i], nil
}

func (s *scriptedChat) ModelName() string { return "scripted" }

func testContext() domain.AssembledContext {
	return domain.AssembledContext{
		Text: "[1] (guide.md, page 1)\nTransfers up to 1,000 euros per day.\n\n---\n\n[2] (faq.md, page 3)\nSupport is available on weekdays.",
		Citations: []domain.Citation{
			{Source: "guide.md", Page: 1},
			{Source: "faq.md", Page: 3},
		},
	}
}

func TestGenerateResolvesCitations(t *testing.T) {
	chat := &scriptedChat{replies: []string{"You can transfer up to 1,000 euros per day [1]."}}
	g := NewGenerator(chat, false)

	answer, err := g.Generate(context.Background(), "What is the daily transfer limit?", testContext())
	if err != nil {
		t.Fatal(err)
	}
	if answer.Unsupported {
		t.Errorf("cited answer flagged unsupported")
	}
	if len(answer.Citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(answer.Citations))
	}
	if answer.Citations[0] != (domain.Citation{Source: "guide.md", Page: 1}) {
		t.Errorf("citation = %+v", answer.Citations[0])
	}
}

func TestGenerateFlagsUncitedAnswer(t *testing.T) {
	chat := &scriptedChat{replies: []string{"Probably around a thousand euros."}}
	g := NewGenerator(chat, false)

	answer, err := g.Generate(context.Background(), "limit?", testContext())
	if err != nil {
		t.Fatal(err)
	}
	if !answer.Unsupported {
		t.Errorf("uncited answer not flagged")
	}
	if len(answer.Citations) != 0 {
		t.Errorf("citations = %+v, want none", answer.Citations)
	}
}

func TestGenerateIgnoresOutOfRangeMarkers(t *testing.T) {
	chat := &scriptedChat{replies: []string{"See [1] and [7] and [0]."}}
	g := NewGenerator(chat, false)

	answer, err := g.Generate(context.Background(), "q", testContext())
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Citations) != 1 {
		t.Errorf("got %d citations, want 1 (only [1] resolves)", len(answer.Citations))
	}
}

func TestGenerateDeduplicatesMarkers(t *testing.T) {
	chat := &scriptedChat{replies: []string{"First [2], again [2], then [1]."}}
	g := NewGenerator(chat, false)

	answer, err := g.Generate(context.Background(), "q", testContext())
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(answer.Citations))
	}
	if answer.Citations[0].Source != "faq.md" || answer.Citations[1].Source != "guide.md" {
		t.Errorf("citations not in first-mention order: %+v", answer.Citations)
	}
}

func TestGenerateStructuredAcceptsDeclaredOrder(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		`{"reasoning": "passage 1 states the limit", "answer": "Up to 1,000 euros per day [1]."}`,
	}}
	g := NewGenerator(chat, true)

	answer, err := g.Generate(context.Background(), "limit?", testContext())
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "Up to 1,000 euros per day [1]." {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Citations) != 1 || answer.Unsupported {
		t.Errorf("answer = %+v", answer)
	}
	if chat.calls != 1 {
		t.Errorf("calls = %d, want 1", chat.calls)
	}
}

func TestGenerateStructuredRejectsReorderedKeys(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		`{"answer": "Up to 1,000 euros [1].", "reasoning": "stated in passage 1"}`,
		`{"answer": "Up to 1,000 euros [1].", "reasoning": "stated in passage 1"}`,
		`{"reasoning": "stated in passage 1", "answer": "Up to 1,000 euros [1]."}`,
	}}
	g := NewGenerator(chat, true)

	answer, err := g.Generate(context.Background(), "limit?", testContext())
	if err != nil {
		t.Fatal(err)
	}
	if chat.calls != 3 {
		t.Errorf("calls = %d, want 3 (two rejections, one accept)", chat.calls)
	}
	if answer.Text != "Up to 1,000 euros [1]." {
		t.Errorf("answer = %q", answer.Text)
	}
}

func TestGenerateStructuredExhaustsOnMalformed(t *testing.T) {
	chat := &scriptedChat{replies: []string{"not json at all"}}
	g := NewGenerator(chat, true)

	_, err := g.Generate(context.Background(), "q", testContext())
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("got %v, want ErrGenerationFailed", err)
	}
	if chat.calls != structuredAttempts {
		t.Errorf("calls = %d, want %d", chat.calls, structuredAttempts)
	}
}

func TestGenerateStructuredStripsFences(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		"```json\n{\"reasoning\": \"r\", \"answer\": \"fenced [1]\"}\n```",
	}}
	g := NewGenerator(chat, true)

	answer, err := g.Generate(context.Background(), "q", testContext())
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "fenced [1]" {
		t.Errorf("answer = %q", answer.Text)
	}
}

func TestParseStructuredRejectsExtraKeys(t *testing.T) {
	_, err := parseStructured(`{"reasoning": "r", "answer": "a", "confidence": 0.9}`)
	if err == nil {
		t.Errorf("extra key accepted")
	}
}

func TestGenerateChatErrorPropagates(t *testing.T) {
	chat := &scriptedChat{err: domain.ErrGenerationFailed}
	g := NewGenerator(chat, false)

	_, err := g.Generate(context.Background(), "q", testContext())
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("got %v", err)
	}
}
