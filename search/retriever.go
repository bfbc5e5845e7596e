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


package search

import (
	"context"
	"log/slog"

	"github.com/aurosystems/ragkit/ai"
	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

// DefaultThreshold is the minimum similarity for retrieval. Looser than the
// learning dedup threshold: retrieval wants related knowledge, dedup wants
// near-identical knowledge.
const DefaultThreshold = 0.5

// DefaultTopK caps retrieval results when the caller does not.
const DefaultTopK = 5

// Result is one retrieved piece of knowledge.
type Result struct {
	Content    string
	Source     string
	Similarity float64
	Meta       core.ChunkMeta
}

// Retriever answers scoped similarity queries over the knowledge store.
// It is read-only: nothing a query does mutates stored chunks.
type Retriever struct {
	chunks    storage.ChunkStore
	provider  ai.Provider
	threshold float64
	logger    *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithThreshold overrides the minimum similarity for results.
func WithThreshold(threshold float64) RetrieverOption {
	return func(r *Retriever) {
		if threshold > 0 {
			r.threshold = threshold
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a retriever over a chunk store and embedding
// provider.
func NewRetriever(chunks storage.ChunkStore, provider ai.Provider, opts ...RetrieverOption) (*Retriever, error) {
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	r := &Retriever{
		chunks:    chunks,
		provider:  provider,
		threshold: DefaultThreshold,
		logger:    slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve embeds the query and returns the most similar chunks within the
// scope, best first. The scope is mandatory; an unscoped query is an error,
// never a cross-tenant search.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope core.Scope, topK int) ([]Result, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := r.provider.Embedder().EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := r.chunks.QuerySimilar(ctx, embedding, storage.SimilarityQuery{
		Scope:     scope,
		Threshold: r.threshold,
		TopK:      topK,
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(matches))
	for i, match := range matches {
		results[i] = Result{
			Content:    match.Chunk.Content,
			Source:     match.Chunk.Meta.SourceName,
			Similarity: match.Similarity,
			Meta:       match.Chunk.Meta,
		}
	}

	r.logger.Debug("query answered", "scope", scope.String(), "results", len(results))
	return results, nil
}
