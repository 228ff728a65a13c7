package embedding

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

func newTestEmbedder(t *testing.T, url string, dimension, batchSize, maxRetries int) *OpenAIEmbedder {
	t.Helper()
	e, err := NewOpenAIEmbedder(Options{
		Model:      "test-model",
		BaseURL:    url,
		Dimension:  dimension,
		BatchSize:  batchSize,
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func embeddingHandler(dimension int, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := embeddingResponse{Data: make([]embeddingData, len(req.Input))}
		for i, text := range req.Input {
			vec := make([]float32, dimension)
			if len(text) > 0 {
				vec[0] = float32(text[0])
			}
			resp.Data[i] = embeddingData{Embedding: vec, Index: i}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestEmbedBatchesInOrder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(embeddingHandler(4, &calls))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 4, 2, 1)

	texts := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	embeddings, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}

	if len(embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	// Batch size 2 over 5 inputs means 3 provider calls.
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 provider calls, got %d", got)
	}
	// Results come back in input order: first vector component encodes the
	// first byte of the input.
	for i, text := range texts {
		if embeddings[i][0] != float32(text[0]) {
			t.Errorf("embedding %d out of order", i)
		}
	}
}

func TestEmbedRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	inner := embeddingHandler(4, &calls)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Load() < 2 {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		inner(w, r)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 4, 10, 3)
	e.policy.BaseDelay = time.Millisecond

	embeddings, err := e.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatal(err)
	}
	if len(embeddings) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(embeddings))
	}
}

func TestEmbedTerminalProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 4, 10, 2)
	e.policy.BaseDelay = time.Millisecond

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	// Provider declared with dimension 8 but returns 4-dim vectors.
	var calls atomic.Int32
	srv := httptest.NewServer(embeddingHandler(4, &calls))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 8, 10, 3)
	e.policy.BaseDelay = time.Millisecond

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEmbedRejectsOutOfRangeIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingResponse{Data: []embeddingData{
			{Embedding: []float32{0.1, 0.2, 0.3, 0.4}, Index: -1},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 4, 10, 2)
	e.policy.BaseDelay = time.Millisecond

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider for negative index, got %v", err)
	}
}

func TestEmbedRejectsIncompleteResponse(t *testing.T) {
	// One data item for two inputs must fail at the boundary, not surface
	// later as nil vectors.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingResponse{Data: []embeddingData{
			{Embedding: []float32{0.1, 0.2, 0.3, 0.4}, Index: 0},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 4, 10, 2)
	e.policy.BaseDelay = time.Millisecond

	_, err := e.Embed(context.Background(), []string{"hello", "world"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider for missing embedding, got %v", err)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e := newTestEmbedder(t, "http://unused", 4, 10, 1)

	embeddings, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if embeddings != nil {
		t.Errorf("expected nil for empty input, got %v", embeddings)
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(16)

	a, err := e.EmbedOne(context.Background(), "same text")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.EmbedOne(context.Background(), "same text")
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("mock embedder not deterministic at component %d", i)
		}
	}
	if e.Dimension() != 16 {
		t.Errorf("expected dimension 16, got %d", e.Dimension())
	}
}
