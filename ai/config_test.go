package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "qwen2.5:14b", cfg.StructureModel)
	assert.Equal(t, "qwen2.5:7b", cfg.ExtractionModel)
	assert.Equal(t, 60, cfg.RateLimitCalls)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.False(t, cfg.EmbeddingsEnabled())
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with one model for both calls", func(t *testing.T) {
		cfg := NewConfig(WithModel("llama3.1:70b"))

		assert.Equal(t, "llama3.1:70b", cfg.StructureModel)
		assert.Equal(t, "llama3.1:70b", cfg.ExtractionModel)
	})

	t.Run("with embeddings", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingModel("embeddinggemma"))
		require.NoError(t, cfg.Validate())

		assert.True(t, cfg.EmbeddingsEnabled())
		assert.Equal(t, cfg.Host, cfg.EmbeddingHost, "embedding host defaults to chat host")
	})

	t.Run("with rate limit", func(t *testing.T) {
		cfg := NewConfig(WithRateLimit(10, time.Second))

		assert.Equal(t, 10, cfg.RateLimitCalls)
		assert.Equal(t, time.Second, cfg.RateWindow)
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		host     string
		want     string
	}{
		{"openai adds v1", ProviderOpenAI, "http://localhost:8080", "http://localhost:8080/v1"},
		{"openai trailing slash", ProviderOpenAI, "http://localhost:8080/", "http://localhost:8080/v1"},
		{"openai keeps v1", ProviderOpenAI, "http://localhost:8080/v1", "http://localhost:8080/v1"},
		{"ollama strips v1", ProviderOllama, "http://localhost:11434/v1", "http://localhost:11434"},
		{"ollama plain host", ProviderOllama, "http://localhost:11434", "http://localhost:11434"},
		{"provider is case-insensitive", "OpenAI", "http://h", "http://h/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithProvider(tt.provider), WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		wantErr bool
	}{
		{"defaults", nil, false},
		{"unknown provider", []ConfigOption{WithProvider("bard")}, true},
		{"missing host", []ConfigOption{WithHost("")}, true},
		{"anthropic without key", []ConfigOption{WithProvider(ProviderAnthropic)}, true},
		{"anthropic with key", []ConfigOption{WithProvider(ProviderAnthropic), WithAPIKey("k")}, false},
		{"missing structure model", []ConfigOption{WithStructureModel("")}, true},
		{"missing extraction model", []ConfigOption{WithExtractionModel("")}, true},
		{"temperature too high", []ConfigOption{WithTemperature(3)}, true},
		{"negative rate", []ConfigOption{WithRateLimit(-1, time.Minute)}, true},
		{"rate without window", []ConfigOption{WithRateLimit(5, 0)}, true},
		{"rate disabled", []ConfigOption{WithRateLimit(0, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
