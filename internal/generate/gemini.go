package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/marbleworks/ankigen/internal/flashcard"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient implements Generator against the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	stats     *CallStats
}

var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient builds a client handle. An empty API key fails with
// ErrCredentialMissing so the precondition surfaces before any call.
func NewGeminiClient(ctx context.Context, apiKey, modelName string, stats *CallStats) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrCredentialMissing
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, classifyAuth(fmt.Errorf("gemini client: %w", err))
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiClient{client: cl, modelName: modelName, stats: stats}, nil
}

func (g *GeminiClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate asks the model for flashcards covering req.Text.
func (g *GeminiClient) Generate(ctx context.Context, req Request) ([]flashcard.Record, error) {
	system, user := BuildCardPrompt(req)
	text, err := g.Complete(ctx, system, user)
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

// Complete performs one raw generation call and returns the response
// text.
func (g *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	if system != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	start := time.Now()
	resp, err := m.GenerateContent(ctx, genai.Text(user))
	g.stats.Record(time.Since(start))
	if err != nil {
		return "", wrapGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// wrapGeminiError maps API errors onto the shared taxonomy: auth
// failures to ErrCredential, rate limits and server errors to
// RetryableError.
func wrapGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrCredential, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return &RetryableError{StatusCode: apiErr.Code, Message: apiErr.Message}
		}
	}
	return classifyAuth(fmt.Errorf("gemini generate: %w", err))
}
