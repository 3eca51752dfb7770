// config.go loads server settings from the environment (and an optional
// .env file). All os.Getenv calls live here.
package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL        = "https://api.x.ai/v1"
	defaultChatModel      = "grok-3-mini-beta"
	defaultXAIEmbedModel  = "text-embedding-3-small"
	defaultOllamaEmbed    = "nomic-embed-text"
	defaultOllamaHost     = "http://127.0.0.1:11434"
	defaultTimeoutSeconds = 60
	defaultMaxAttempts    = 3

	// placeholderAPIKey is what the sample .env ships with.
	placeholderAPIKey = "your_api_key_here"
)

// Embedding providers accepted by EMBEDDING_PROVIDER.
const (
	ProviderXAI    = "xai"
	ProviderOllama = "ollama"
)

// Config holds every setting the server reads at startup.
type Config struct {
	// APIKey is the xAI bearer token (XAI_API_KEY). Required.
	APIKey string

	// BaseURL is the upstream API root (XAI_BASE_URL)
	BaseURL string

	// DefaultModel is the chat model used when a call names none (DEFAULT_MODEL)
	DefaultModel string

	// Debug switches logging to debug level (DEBUG)
	Debug bool

	// Timeout bounds each upstream attempt (XAI_TIMEOUT_SECONDS)
	Timeout time.Duration

	// MaxAttempts is the retry ceiling per call (XAI_MAX_ATTEMPTS)
	MaxAttempts int

	// EmbeddingProvider is "xai" or "ollama" (EMBEDDING_PROVIDER)
	EmbeddingProvider string

	// EmbeddingModel is the default embedding model (EMBEDDING_MODEL)
	EmbeddingModel string

	// OllamaHost is the local Ollama address (OLLAMA_HOST)
	OllamaHost string
}

// LoadDotEnv reads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig builds a Config from the given lookup function (os.LookupEnv in
// production). It fails with a *ConfigurationError when a value is missing or
// unparseable.
func LoadConfig(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		APIKey:            get("XAI_API_KEY", ""),
		BaseURL:           strings.TrimRight(get("XAI_BASE_URL", defaultBaseURL), "/"),
		DefaultModel:      get("DEFAULT_MODEL", defaultChatModel),
		Debug:             strings.EqualFold(get("DEBUG", "false"), "true"),
		EmbeddingProvider: strings.ToLower(get("EMBEDDING_PROVIDER", ProviderXAI)),
		OllamaHost:        get("OLLAMA_HOST", defaultOllamaHost),
	}

	if cfg.APIKey == "" {
		return nil, &ConfigurationError{Variable: "XAI_API_KEY", Reason: "is not set"}
	}
	if cfg.APIKey == placeholderAPIKey {
		return nil, &ConfigurationError{Variable: "XAI_API_KEY", Reason: "still holds the placeholder value"}
	}

	if _, ok := LookupModel(cfg.DefaultModel); !ok {
		return nil, &ConfigurationError{Variable: "DEFAULT_MODEL", Reason: "names unknown model " + cfg.DefaultModel}
	}

	secs, err := positiveInt(get("XAI_TIMEOUT_SECONDS", strconv.Itoa(defaultTimeoutSeconds)))
	if err != nil {
		return nil, &ConfigurationError{Variable: "XAI_TIMEOUT_SECONDS", Reason: err.Error()}
	}
	cfg.Timeout = time.Duration(secs) * time.Second

	cfg.MaxAttempts, err = positiveInt(get("XAI_MAX_ATTEMPTS", strconv.Itoa(defaultMaxAttempts)))
	if err != nil {
		return nil, &ConfigurationError{Variable: "XAI_MAX_ATTEMPTS", Reason: err.Error()}
	}

	switch cfg.EmbeddingProvider {
	case ProviderXAI:
		cfg.EmbeddingModel = get("EMBEDDING_MODEL", defaultXAIEmbedModel)
	case ProviderOllama:
		cfg.EmbeddingModel = get("EMBEDDING_MODEL", defaultOllamaEmbed)
	default:
		return nil, &ConfigurationError{
			Variable: "EMBEDDING_PROVIDER",
			Reason:   "must be " + ProviderXAI + " or " + ProviderOllama + ", got " + strconv.Quote(cfg.EmbeddingProvider),
		}
	}

	return cfg, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("must be an integer, got " + strconv.Quote(s))
	}
	if n <= 0 {
		return 0, errors.New("must be positive, got " + s)
	}
	return n, nil
}

// NewLogger returns the server logger. It always writes to stderr because
// stdout carries the stdio transport.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
