package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"docrag/internal/domain"
	"docrag/internal/retry"
)

// Options configures an OpenAI-compatible embedding client.
type Options struct {
	Model      string
	APIKeyEnv  string
	BaseURL    string
	Dimension  int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. The same
// client serves OpenAI, DeepSeek, Jina and local Ollama deployments; only
// the base URL differs.
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	batchSize int
	client    *http.Client
	policy    retry.Policy
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIEmbedder builds the client from options. The API key is read
// from the named environment variable; "ollama" deployments accept any key.
func NewOpenAIEmbedder(opts Options) (*OpenAIEmbedder, error) {
	apiKey := "unused"
	if opts.APIKeyEnv != "" {
		apiKey = os.Getenv(opts.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: API key not found in environment variable %s",
				domain.ErrInvalidConfiguration, opts.APIKeyEnv)
		}
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive", domain.ErrInvalidConfiguration)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 96
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	policy := retry.DefaultPolicy()
	if opts.MaxRetries > 0 {
		policy.MaxAttempts = opts.MaxRetries
	}

	return &OpenAIEmbedder{
		apiKey:    apiKey,
		model:     opts.Model,
		baseURL:   opts.BaseURL,
		dimension: opts.Dimension,
		batchSize: batchSize,
		client:    &http.Client{Timeout: timeout},
		policy:    policy,
	}, nil
}

// Embed generates embeddings for the given texts in input order. Requests
// larger than the batch size are split into multiple provider calls.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		var embeddings [][]float32
		err := e.policy.Do(ctx, func() error {
			var batchErr error
			embeddings, batchErr = e.embedBatch(ctx, texts[i:end])
			if isDimensionMismatch(batchErr) {
				return retry.Permanent(batchErr)
			}
			return batchErr
		})
		if err != nil {
			// Dimension errors are data errors and will not resolve by
			// retrying; everything else is a provider failure.
			if isDimensionMismatch(err) || ctx.Err() != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingProvider, err)
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

// EmbedOne generates the embedding for a single text.
func (e *OpenAIEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: provider returned no embedding", domain.ErrEmbeddingProvider)
	}
	return embeddings[0], nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: e.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", bodyPreview, err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("provider returned embedding index %d for %d inputs", data.Index, len(texts))
		}
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: expected %d, provider returned %d",
				domain.ErrDimensionMismatch, e.dimension, len(data.Embedding))
		}
		embeddings[data.Index] = data.Embedding
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("provider returned no embedding for input %d of %d", i, len(texts))
		}
	}

	return embeddings, nil
}

func isDimensionMismatch(err error) bool {
	return errors.Is(err, domain.ErrDimensionMismatch)
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
