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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aurosystems/ragkit/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder against OpenAI-compatible embedding APIs.
//
// Calls are paced: after every CooldownEvery embedding requests the embedder
// sleeps for CooldownDelay before issuing the next one. Failed requests are
// retried with exponential backoff up to MaxRetries attempts.
type Embedder struct {
	embedder embeddings.Embedder
	config   *ai.Config
	logger   *slog.Logger

	mu    sync.Mutex
	calls int
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		config:   config,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedDocument generates a vector embedding for document content.
func (e *Embedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, false)
}

// EmbedQuery generates a vector embedding for a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, true)
}

func (e *Embedder) embed(ctx context.Context, text string, query bool) ([]float32, error) {
	if text == "" {
		return nil, ai.ErrEmptyInput
	}

	// Upstream embedding endpoints reject oversized inputs outright, so
	// truncate rather than fail the whole document. The limit counts
	// characters; cutting at a byte offset could split a rune.
	if runes := []rune(text); len(runes) > e.config.MaxInputChars {
		e.logger.Debug("truncating embedding input", "chars", len(runes), "limit", e.config.MaxInputChars)
		text = string(runes[:e.config.MaxInputChars])
	}

	if err := e.pace(ctx); err != nil {
		return nil, err
	}

	var result []float32
	operation := func() error {
		var err error
		if query {
			result, err = e.embedder.EmbedQuery(ctx, text)
			return err
		}
		vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
		if err != nil {
			return err
		}
		if len(vectors) == 0 {
			return fmt.Errorf("embedder returned no vectors")
		}
		result = vectors[0]
		return nil
	}

	if err := ai.RetryWithBackoff(ctx, operation, e.config.MaxRetries, e.config.RetryDelay); err != nil {
		e.logger.Error("failed to generate embedding", "length", len(text), "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbedding, err)
	}

	return result, nil
}

// pace counts calls and sleeps for the configured cooldown after every
// CooldownEvery requests. The counter includes the current call, so the
// pause lands before calls CooldownEvery+1, 2*CooldownEvery+1, and so on.
func (e *Embedder) pace(ctx context.Context) error {
	e.mu.Lock()
	e.calls++
	pause := e.calls > 1 && (e.calls-1)%e.config.CooldownEvery == 0
	e.mu.Unlock()

	if !pause || e.config.CooldownDelay <= 0 {
		return nil
	}

	e.logger.Debug("embedding cooldown", "delay", e.config.CooldownDelay)
	timer := time.NewTimer(e.config.CooldownDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
