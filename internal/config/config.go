// Package config loads runtime settings from the environment, with a
// .env file picked up when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider names a supported generation backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

type Config struct {
	// Generation backend
	Provider     Provider
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	// Fan-out
	WorkerCount int
	MaxRetries  int

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int

	// Card defaults
	CardsPerChunk int
	Language      string

	// Output
	OutputDir string

	// Serve mode
	Port           string
	ServeAPIKey    string
	MaxQueueSize   int
	MaxUploadBytes int64
	JobTTL         time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	// Missing .env is the normal case outside local dev.
	_ = godotenv.Load()

	cfg := Config{
		Provider:     Provider(envOr("ANKIGEN_PROVIDER", string(ProviderOpenAI))),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  envOr("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  envOr("GEMINI_MODEL", "gemini-1.5-flash"),

		WorkerCount: envInt("WORKER_COUNT", 0),
		MaxRetries:  envInt("MAX_RETRIES", 3),

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 2500),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 500),

		CardsPerChunk: envInt("CARDS_PER_CHUNK", 5),
		Language:      envOr("CARD_LANGUAGE", "English"),

		OutputDir: envOr("OUTPUT_DIR", "."),

		Port:           envOr("PORT", "8090"),
		ServeAPIKey:    os.Getenv("ANKIGEN_API_KEY"),
		MaxQueueSize:   envInt("MAX_QUEUE_SIZE", 100),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		JobTTL:         envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 2500
	}
	if cfg.DefaultChunkOverlap < 0 {
		cfg.DefaultChunkOverlap = 500
	}
	if cfg.CardsPerChunk <= 0 {
		cfg.CardsPerChunk = 5
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// APIKey returns the credential for the configured provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown provider %q (want openai or gemini)", c.Provider)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
