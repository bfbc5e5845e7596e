package storage

import (
	"context"
	"time"

	"github.com/aurosystems/ragkit/core"
)

// SimilarityQuery describes a scoped vector search.
type SimilarityQuery struct {
	// Scope restricts the search. ClientID is mandatory; FolderID narrows
	// further when set. Implementations must return ErrScopeRequired for an
	// empty ClientID rather than searching across tenants.
	Scope core.Scope

	// Threshold is the minimum similarity (0..1) a chunk must reach to be
	// returned.
	Threshold float64

	// TopK caps the number of results. Zero or negative means the
	// implementation default.
	TopK int
}

// ChunkStore provides operations for managing knowledge chunks.
// Implementations must be safe for concurrent use.
type ChunkStore interface {
	// UpsertChunk inserts a chunk or replaces the stored chunk with the same
	// ID. The chunk is validated first; write failures wrap ErrWrite.
	UpsertChunk(ctx context.Context, chunk *core.Chunk) error

	// QuerySimilar finds stored chunks similar to the given embedding within
	// the query's scope. Results are ordered by similarity (highest first)
	// and only include chunks at or above the threshold.
	QuerySimilar(ctx context.Context, embedding []float32, q SimilarityQuery) ([]core.Match, error)

	// DeleteByDocument removes every chunk belonging to a document and
	// returns the number removed. Deleting a document with no chunks is not
	// an error.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// CountByDocument returns the number of chunks stored for a document.
	CountByDocument(ctx context.Context, documentID string) (int, error)

	// ListByScope pages through a scope's chunks in a stable store-defined
	// order. pageToken is the opaque continuation token from the previous
	// page; empty starts from the beginning. An empty next token means the
	// scope is exhausted.
	ListByScope(ctx context.Context, scope core.Scope, pageToken string, limit int) (chunks []*core.Chunk, next string, err error)

	// Close closes the store and releases resources.
	Close() error
}

// DocumentStore provides operations for managing source documents.
type DocumentStore interface {
	// PutDocument inserts a document or replaces the stored document with
	// the same ID. Timestamps are populated on write.
	PutDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// ListUnprocessed returns up to limit documents whose embeddings have
	// not been generated yet, oldest first.
	ListUnprocessed(ctx context.Context, limit int) ([]*core.Document, error)

	// MarkProcessed records a document's embedding and flips its processed
	// flag in one write.
	MarkProcessed(ctx context.Context, id string, embedding []float32) error

	// DeleteDocument removes a document by ID.
	// Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, id string) error

	// Close closes the store and releases resources.
	Close() error
}

// ConversationSource lists closed conversations eligible for learning.
// Backed by the platform's lead/message tables in production and by fixtures
// in tests.
type ConversationSource interface {
	// ListClosed returns conversations that closed at or after since,
	// messages included, ordered oldest first.
	ListClosed(ctx context.Context, scope core.Scope, since time.Time) ([]core.Conversation, error)
}
