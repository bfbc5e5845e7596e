package learning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurosystems/ragkit/core"
	badgerstore "github.com/aurosystems/ragkit/storage/badger"
)

func seedChunk(t *testing.T, chunks *badgerstore.ChunkStore, scope core.Scope, content string, embedding []float32) {
	t.Helper()
	err := chunks.UpsertChunk(context.Background(), &core.Chunk{
		ID:         core.ChunkID(scope, "doc-1", 0),
		Scope:      scope,
		DocumentID: "doc-1",
		Content:    content,
		Embedding:  embedding,
		Meta:       core.NewIngestedMeta("seed.txt", 0, core.HashContent(content)),
		SourceType: core.SourceDocument,
	})
	require.NoError(t, err)
}

func TestGuard_IsDuplicate(t *testing.T) {
	chunks, _, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	scope := core.NewScope("demo", "general")
	guard := NewGuard(chunks, DefaultDedupThreshold)

	seedChunk(t, chunks, scope, "known answer", []float32{1, 0, 0})

	t.Run("above threshold is suppressed", func(t *testing.T) {
		dup, err := guard.IsDuplicate(ctx, []float32{1, 0, 0}, scope)
		require.NoError(t, err)
		assert.True(t, dup)
	})

	t.Run("below threshold is not", func(t *testing.T) {
		dup, err := guard.IsDuplicate(ctx, []float32{0, 1, 0}, scope)
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("other scopes do not suppress", func(t *testing.T) {
		dup, err := guard.IsDuplicate(ctx, []float32{1, 0, 0}, core.NewScope("other", "general"))
		require.NoError(t, err)
		assert.False(t, dup)
	})
}

func TestNewGuard_DefaultThreshold(t *testing.T) {
	chunks, _, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	guard := NewGuard(chunks, 0)
	assert.Equal(t, DefaultDedupThreshold, guard.threshold)
}
