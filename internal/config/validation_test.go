package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes Validate().
func validConfig() *Config {
	return &Config{
		Provider:           ProviderGemini,
		ModelName:          "gemini-2.5-flash",
		Temperature:        0.3,
		MaxTokens:          1024,
		EmbedderModel:      DefaultEmbedderModel,
		ChunkSize:          DefaultChunkSize,
		ChunkOverlap:       DefaultChunkOverlap,
		TopK:               DefaultTopK,
		ContextBudget:      DefaultContextBudget,
		MaxHistoryMessages: DefaultMaxHistoryMessages,
		MaxQueryLength:     DefaultMaxQueryLength,

		MaxRetries:           DefaultMaxRetries,
		RetryInitialInterval: DefaultRetryInitialInterval,
		RetryMaxInterval:     DefaultRetryMaxInterval,
		RateLimitRPS:         DefaultRateLimitRPS,
		RateLimitBurst:       DefaultRateLimitBurst,
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "medichat",
		PostgresPassword:   "secret",
		PostgresDBName:     "medichat",
		PostgresSSLMode:    "disable",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown provider", func(c *Config) { c.Provider = "anthropic" }, ErrInvalidProvider},
		{"empty model name", func(c *Config) { c.ModelName = "  " }, ErrInvalidModelName},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, ErrInvalidTemperature},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, ErrInvalidTemperature},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, ErrInvalidMaxTokens},
		{"empty embedder", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"chunk size too small", func(c *Config) { c.ChunkSize = 50 }, ErrInvalidChunking},
		{"overlap >= size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunking},
		{"zero top-k", func(c *Config) { c.TopK = 0 }, ErrInvalidTopK},
		{"tiny context budget", func(c *Config) { c.ContextBudget = 100 }, ErrInvalidContextBudget},
		{"history cap too small", func(c *Config) { c.MaxHistoryMessages = 1 }, ErrInvalidHistoryLimit},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidRetry},
		{"zero initial backoff", func(c *Config) { c.RetryInitialInterval = 0 }, ErrInvalidRetry},
		{"max backoff below initial", func(c *Config) { c.RetryMaxInterval = c.RetryInitialInterval / 2 }, ErrInvalidRetry},
		{"zero rate limit", func(c *Config) { c.RateLimitRPS = 0 }, ErrInvalidRateLimit},
		{"zero burst", func(c *Config) { c.RateLimitBurst = 0 }, ErrInvalidRateLimit},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"postgres port out of range", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"bad ssl mode", func(c *Config) { c.PostgresSSLMode = "maybe" }, ErrInvalidPostgresSSLMode},
		{"ollama without host", func(c *Config) {
			c.Provider = ProviderOllama
			c.OllamaHost = "not-a-url"
		}, ErrInvalidOllamaHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{ProviderGemini, "openai/gpt-4o", "openai/gpt-4o"}, // already qualified
	}
	for _, tt := range tests {
		cfg := &Config{Provider: tt.provider, ModelName: tt.model}
		assert.Equal(t, tt.want, cfg.FullModelName())
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super_secret_password"

	data, err := cfg.MarshalJSON()
	require.NoError(t, err)

	assert.NotContains(t, string(data), "super_secret_password")
	assert.Contains(t, string(data), maskedValue)
}

func TestMaskSecretShortValueFullyMasked(t *testing.T) {
	assert.Equal(t, maskedValue, maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}

func TestParseDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app:pw@db.internal:6432/chat?sslmode=require")

	cfg := validConfig()
	require.NoError(t, cfg.parseDatabaseURL())

	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.Equal(t, 6432, cfg.PostgresPort)
	assert.Equal(t, "app", cfg.PostgresUser)
	assert.Equal(t, "pw", cfg.PostgresPassword)
	assert.Equal(t, "chat", cfg.PostgresDBName)
	assert.Equal(t, "require", cfg.PostgresSSLMode)
}

func TestParseDatabaseURLRejectsOtherSchemes(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://app:pw@db:3306/chat")

	cfg := validConfig()
	assert.Error(t, cfg.parseDatabaseURL())
}
