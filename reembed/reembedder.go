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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aurosystems/ragkit/ai"
	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

// Config holds configuration for a reembedding run.
type Config struct {
	// BatchSize is the number of chunks fetched per page
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Report summarizes a reembedding run.
type Report struct {
	Processed int
	Errored   int
}

// Reembedder regenerates the embeddings of every chunk in a scope. Used
// after an embedding model change, when stored vectors no longer live in
// the same space as fresh query vectors.
type Reembedder struct {
	chunks   storage.ChunkStore
	embedder ai.Embedder
	scope    core.Scope
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReembedder creates a reembedder for one scope.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(chunks storage.ChunkStore, embedder ai.Embedder, scope core.Scope, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reembedder{
		chunks:   chunks,
		embedder: embedder,
		scope:    scope,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reembed"),
	}
}

// Run reembeds every chunk of the scope, one at a time. Embedding failures
// exhaust the retry budget, then the chunk is counted and skipped; a failed
// chunk keeps its old vector.
func (r *Reembedder) Run(ctx context.Context) (Report, error) {
	if err := r.scope.Validate(); err != nil {
		return Report{}, err
	}

	fmt.Fprintf(r.progress, "Starting reembedding for scope %s (batch size: %d)\n",
		r.scope.String(), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, r.config.ReportInterval)
	tracker.Start()

	var report Report
	iterator := NewChunkIterator(r.chunks, r.scope, r.config.BatchSize)

	err := iterator.ForEach(ctx, func(batch []*core.Chunk) error {
		for _, chunk := range batch {
			if err := r.reembedChunk(ctx, chunk); err != nil {
				r.logger.Warn("chunk reembedding failed", "chunkID", chunk.ID, "err", err)
				report.Errored++
				continue
			}
			report.Processed++
		}
		tracker.Increment(len(batch))
		return nil
	})
	if err != nil {
		return report, err
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks (%d failed) in %v\n",
		report.Processed, report.Errored, elapsed.Round(time.Second))
	return report, nil
}

func (r *Reembedder) reembedChunk(ctx context.Context, chunk *core.Chunk) error {
	var embedding []float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embedding, err = r.embedder.EmbedDocument(ctx, chunk.Content)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return err
	}

	chunk.Embedding = NormalizeVector(embedding)
	return r.chunks.UpsertChunk(ctx, chunk)
}
