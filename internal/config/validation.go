package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validSSLModes are the PostgreSQL SSL modes accepted by libpq/pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate performs a full configuration check and returns the first
// violation found, wrapped around a sentinel error for errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be one of: gemini, ollama, openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: %d (must be in [1, 65536])", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}

	if c.Provider == ProviderOllama {
		if err := validateHostURL(c.OllamaHost); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOllamaHost, err)
		}
	}

	if err := c.validateChunking(); err != nil {
		return err
	}

	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: %d (must be in [1, 50])", ErrInvalidTopK, c.TopK)
	}

	if c.ContextBudget < 500 || c.ContextBudget > 200000 {
		return fmt.Errorf("%w: %d (must be in [500, 200000])", ErrInvalidContextBudget, c.ContextBudget)
	}

	if c.MaxHistoryMessages < 2 || c.MaxHistoryMessages > MaxAllowedHistoryMessages {
		return fmt.Errorf("%w: %d (must be in [2, %d])",
			ErrInvalidHistoryLimit, c.MaxHistoryMessages, MaxAllowedHistoryMessages)
	}

	if err := c.validateResilience(); err != nil {
		return err
	}

	return c.validateStorage()
}

// validateResilience checks the model call retry and rate limit settings.
// Zero retries is valid and means fail on the first error.
func (c *Config) validateResilience() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("%w: max_retries %d (must be in [0, 10])", ErrInvalidRetry, c.MaxRetries)
	}
	if c.RetryInitialInterval <= 0 {
		return fmt.Errorf("%w: retry_initial_interval %v (must be positive)", ErrInvalidRetry, c.RetryInitialInterval)
	}
	if c.RetryMaxInterval < c.RetryInitialInterval {
		return fmt.Errorf("%w: retry_max_interval %v must be at least retry_initial_interval %v",
			ErrInvalidRetry, c.RetryMaxInterval, c.RetryInitialInterval)
	}
	if c.RateLimitRPS < 1 || c.RateLimitRPS > 1000 {
		return fmt.Errorf("%w: rate_limit_rps %d (must be in [1, 1000])", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate_limit_burst %d (must be >= 1)", ErrInvalidRateLimit, c.RateLimitBurst)
	}
	return nil
}

// validateChunking checks chunk size and overlap consistency.
// The overlap must leave room for forward progress: overlap < size.
func (c *Config) validateChunking() error {
	if c.ChunkSize < 100 || c.ChunkSize > 20000 {
		return fmt.Errorf("%w: chunk_size %d (must be in [100, 20000])", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap %d (must be >= 0)", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_size %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// validateStorage checks the PostgreSQL connection settings.
func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be in [1, 65535])", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}

	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// validateHostURL checks that s parses as an http(s) URL with a host.
func validateHostURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", s)
	}
	return nil
}
