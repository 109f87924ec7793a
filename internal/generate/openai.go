package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marbleworks/ankigen/internal/flashcard"
)

// Default OpenAI configuration values.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAITimeout = 120 * time.Second
)

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	// APIKey is the bearer credential. May be empty at construction;
	// Generate then fails with ErrCredentialMissing before any call.
	APIKey string

	// BaseURL can point at any chat-completions compatible endpoint.
	BaseURL string

	Model   string
	Timeout time.Duration
}

// OpenAIClient calls an OpenAI-compatible chat-completions API. The
// client is stateless apart from its HTTP transport and is safe for
// concurrent use by scheduler workers.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	stats      *CallStats
}

var _ Generator = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg OpenAIConfig, stats *CallStats) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOpenAITimeout
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		stats:      stats,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate asks the model for flashcards covering req.Text.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) ([]flashcard.Record, error) {
	system, user := BuildCardPrompt(req)
	text, err := c.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	records, err := ParseRecords(text)
	if err != nil {
		return nil, err
	}
	if req.Count > 0 && len(records) > req.Count {
		records = records[:req.Count]
	}
	return flashcard.Clean(records), nil
}

// Complete performs one raw chat-completion call and returns the
// response text. Used by Generate and by the two-stage answer step.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", ErrCredentialMissing
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.5,
		MaxTokens:   2000,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai api: %w", err)
	}
	defer resp.Body.Close()
	c.stats.Record(time.Since(start))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d: %s", ErrCredential, resp.StatusCode, truncate(string(respBody), 200))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("openai api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", classifyAuth(fmt.Errorf("openai error: %s: %s", apiResp.Error.Type, apiResp.Error.Message))
	}
	if len(apiResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return apiResp.Choices[0].Message.Content, nil
}

// Close releases idle transport resources.
func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}
