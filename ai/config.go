// Copyright 2026 Auro Systems
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
	"strings"
	"time"
)

// Config holds configuration for the embedding service client.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// APIToken authenticates against the embedding service. Local
	// OpenAI-compatible servers accept any non-empty token.
	APIToken string

	// MaxInputChars caps the text length submitted per embedding call.
	// Longer inputs are truncated, never forwarded whole.
	// Default: 8000
	MaxInputChars int

	// CooldownEvery inserts a pause after this many embedding calls to
	// respect upstream rate limits. Omitting the pause causes cascading
	// provider throttling on large batches.
	// Default: 10
	CooldownEvery int

	// CooldownDelay is the length of the pacing pause.
	// Default: 2s
	CooldownDelay time.Duration

	// MaxRetries is the number of attempts per embedding call.
	// Default: 3
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff between attempts.
	// Default: 1s
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIToken sets the embedding service API token.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithMaxInputChars sets the truncation limit for embedding inputs.
func WithMaxInputChars(n int) ConfigOption {
	return func(c *Config) {
		c.MaxInputChars = n
	}
}

// WithCooldown sets the pacing contract: pause for delay after every n calls.
func WithCooldown(n int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.CooldownEvery = n
		c.CooldownDelay = delay
	}
}

// WithRetry sets the bounded backoff policy for provider calls.
func WithRetry(maxRetries int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = baseDelay
	}
}

// DefaultConfig returns a Config with defaults for a local OpenAI-compatible
// embedding service.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "embeddinggemma",
		APIToken:       "none",
		MaxInputChars:  8000,
		CooldownEvery:  10,
		CooldownDelay:  2 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// NewConfig creates a Config with default values and applies the provided
// options.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form. It adds the
// /v1 suffix to the host if missing, which OpenAI-compatible APIs (Ollama,
// LocalAI, vLLM, etc) require.
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.MaxInputChars <= 0 {
		return errors.New("ai config: MaxInputChars must be greater than 0")
	}
	if c.CooldownEvery <= 0 {
		return errors.New("ai config: CooldownEvery must be greater than 0")
	}
	if c.CooldownDelay < 0 {
		return errors.New("ai config: CooldownDelay cannot be negative")
	}
	if c.MaxRetries <= 0 {
		return errors.New("ai config: MaxRetries must be greater than 0")
	}
	return nil
}
