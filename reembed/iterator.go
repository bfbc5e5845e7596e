package reembed

import (
	"context"

	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

// ChunkIterator pages through every chunk of a scope in batches.
type ChunkIterator struct {
	chunks    storage.ChunkStore
	scope     core.Scope
	batchSize int
}

// NewChunkIterator creates an iterator over a scope's chunks.
func NewChunkIterator(chunks storage.ChunkStore, scope core.Scope, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ChunkIterator{
		chunks:    chunks,
		scope:     scope,
		batchSize: batchSize,
	}
}

// ForEach calls fn once per batch until the scope is exhausted or fn returns
// an error.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func(batch []*core.Chunk) error) error {
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, next, err := it.chunks.ListByScope(ctx, it.scope, token, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		if next == "" {
			return nil
		}
		token = next
	}
}
