package cli

import (
	"context"
	"fmt"

	"github.com/marbleworks/ankigen/internal/config"
	"github.com/marbleworks/ankigen/internal/generate"
)

// backend bundles everything a command needs from a provider.
type backend struct {
	gen       generate.Generator
	completer generate.Completer
	model     string
	close     func() error
}

// buildBackend constructs the configured provider's client. The
// credential is checked up front so a bad setup fails before any
// document work starts.
func buildBackend(ctx context.Context, cfg config.Config, stats *generate.CallStats) (*backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := generate.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, stats)
		if err != nil {
			return nil, fmt.Errorf("gemini setup: %w", err)
		}
		return &backend{
			gen:       client,
			completer: client,
			model:     cfg.GeminiModel,
			close:     client.Close,
		}, nil
	case config.ProviderOpenAI:
		client := generate.NewOpenAIClient(generate.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}, stats)
		return &backend{
			gen:       client,
			completer: client,
			model:     cfg.OpenAIModel,
			close:     func() error { client.Close(); return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
