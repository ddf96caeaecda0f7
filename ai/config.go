// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported values for Config.Provider.
const (
	ProviderOpenAI    = "openai" // Any OpenAI-compatible server (vLLM, LocalAI, Ollama's /v1, ...)
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the chat backend: "openai", "ollama" or "anthropic".
	Provider string

	// Host is the base URL of the chat service.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	Host string

	// APIKey authenticates against hosted services. Local servers ignore it.
	APIKey string

	// StructureModel is the model used for whole-transcript structure and
	// speaker calls. It needs a large context window.
	StructureModel string

	// ExtractionModel is the model used for per-unit knowledge extraction.
	ExtractionModel string

	// EmbeddingHost is the base URL of the OpenAI-compatible embedding service.
	// Defaults to Host when empty.
	EmbeddingHost string

	// EmbeddingModel enables unit embeddings when set.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// Temperature is passed to every chat call.
	// Default: 0
	Temperature float64

	// RateLimitCalls is the number of collaborator calls allowed per RateWindow,
	// shared by every call through one provider. Zero disables limiting.
	// Default: 60
	RateLimitCalls int

	// RateWindow is the window RateLimitCalls applies to.
	// Default: 1 minute
	RateWindow time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the chat backend.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the chat service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key for hosted services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithStructureModel sets the model used for structure and speaker calls.
func WithStructureModel(model string) ConfigOption {
	return func(c *Config) {
		c.StructureModel = model
	}
}

// WithExtractionModel sets the model used for knowledge extraction.
func WithExtractionModel(model string) ConfigOption {
	return func(c *Config) {
		c.ExtractionModel = model
	}
}

// WithModel sets both the structure and extraction models.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.StructureModel = model
		c.ExtractionModel = model
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model and enables unit embeddings.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithTemperature sets the sampling temperature for chat calls.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithRateLimit sets the shared call budget.
func WithRateLimit(calls int, window time.Duration) ConfigOption {
	return func(c *Config) {
		c.RateLimitCalls = calls
		c.RateWindow = window
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible service. Embeddings are disabled by default.
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderOpenAI,
		Host:            "http://localhost:11434/v1",
		StructureModel:  "qwen2.5:14b",
		ExtractionModel: "qwen2.5:7b",
		Temperature:     0,
		RateLimitCalls:  60,
		RateWindow:      time.Minute,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithModel("llama3.1:70b"),
//	    WithEmbeddingModel("embeddinggemma"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// EmbeddingsEnabled reports whether unit embeddings are configured.
func (c *Config) EmbeddingsEnabled() bool {
	return c.EmbeddingModel != ""
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix; Ollama hosts lose it, since the
// native Ollama client appends its own API path.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}

	switch c.Provider {
	case ProviderOpenAI:
		c.Host = withV1(c.Host)
	case ProviderOllama:
		c.Host = strings.TrimSuffix(strings.TrimSuffix(c.Host, "/"), "/v1")
	}

	if c.EmbeddingModel != "" && c.EmbeddingHost == "" && c.Provider == ProviderOpenAI {
		c.EmbeddingHost = c.Host
	}
	c.EmbeddingHost = withV1(c.EmbeddingHost)
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
		if c.Host == "" {
			return errors.New("ai config: Host is required")
		}
	case ProviderAnthropic:
		if c.APIKey == "" {
			return errors.New("ai config: APIKey is required for anthropic")
		}
	default:
		return fmt.Errorf("ai config: %w: %q", ErrUnknownProvider, c.Provider)
	}

	if c.StructureModel == "" {
		return errors.New("ai config: StructureModel is required")
	}
	if c.ExtractionModel == "" {
		return errors.New("ai config: ExtractionModel is required")
	}
	if c.EmbeddingModel != "" && c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required when EmbeddingModel is set")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.RateLimitCalls < 0 {
		return errors.New("ai config: RateLimitCalls cannot be negative")
	}
	if c.RateLimitCalls > 0 && c.RateWindow <= 0 {
		return errors.New("ai config: RateWindow must be positive when RateLimitCalls is set")
	}
	return nil
}
