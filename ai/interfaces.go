package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// search. The document and query roles map to the embedding provider's task
// types; some models produce asymmetric vectors for the two roles.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedDocument generates an embedding for text that will be stored.
	// The input is truncated to the configured maximum length before
	// submission. Failures are reported wrapped in ErrEmbedding with the
	// provider's original error as the cause.
	EmbedDocument(ctx context.Context, text string) ([]float32, error)

	// EmbedQuery generates an embedding for a retrieval query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	Close() error
}
