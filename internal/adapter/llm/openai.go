package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"docrag/internal/domain"
	"docrag/internal/port"
	"docrag/internal/retry"
)

// Options configures an OpenAI-compatible chat client.
type Options struct {
	Model       string
	APIKeyEnv   string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

var _ port.ChatClient = (*OpenAIChat)(nil)

// OpenAIChat calls an OpenAI-compatible /chat/completions endpoint without
// streaming. Swapping providers is a base URL change.
type OpenAIChat struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
	policy      retry.Policy
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIChat builds the client from options. The API key is read from
// the named environment variable; local deployments accept any key.
func NewOpenAIChat(opts Options) (*OpenAIChat, error) {
	apiKey := "unused"
	if opts.APIKeyEnv != "" {
		apiKey = os.Getenv(opts.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: API key not found in environment variable %s",
				domain.ErrInvalidConfiguration, opts.APIKeyEnv)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	policy := retry.DefaultPolicy()
	if opts.MaxRetries > 0 {
		policy.MaxAttempts = opts.MaxRetries
	}

	return &OpenAIChat{
		apiKey:      apiKey,
		model:       opts.Model,
		baseURL:     opts.BaseURL,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      &http.Client{Timeout: timeout},
		policy:      policy,
	}, nil
}

// Chat sends a system + user message pair and returns the completion text.
// Provider failures after retry exhaustion are reported as ErrGenerationFailed.
func (c *OpenAIChat) Chat(ctx context.Context, system, user string) (string, error) {
	var content string
	err := c.policy.Do(ctx, func() error {
		var callErr error
		content, callErr = c.complete(ctx, system, user)
		return callErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	return content, nil
}

func (c *OpenAIChat) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("API returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (c *OpenAIChat) ModelName() string {
	return c.model
}
