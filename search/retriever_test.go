package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurosystems/ragkit/ai/mock"
	"github.com/aurosystems/ragkit/core"
	badgerstore "github.com/aurosystems/ragkit/storage/badger"
)

func newTestRetriever(t *testing.T, opts ...RetrieverOption) (*Retriever, *badgerstore.ChunkStore) {
	t.Helper()

	chunks, _, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	retriever, err := NewRetriever(chunks, mock.NewMockProvider(), opts...)
	require.NoError(t, err)
	return retriever, chunks
}

func storeChunk(t *testing.T, chunks *badgerstore.ChunkStore, scope core.Scope, docID string, ordinal int, content string) {
	t.Helper()
	err := chunks.UpsertChunk(context.Background(), &core.Chunk{
		ID:         core.ChunkID(scope, docID, ordinal),
		Scope:      scope,
		DocumentID: docID,
		Content:    content,
		Embedding:  mock.DeterministicVector(content, 384),
		Meta:       core.NewIngestedMeta(docID+".txt", ordinal, core.HashContent(content)),
		SourceType: core.SourceDocument,
	})
	require.NoError(t, err)
}

func TestRetrieve(t *testing.T) {
	retriever, chunks := newTestRetriever(t)
	scope := core.NewScope("demo", "general")

	content := "Two bedroom apartments start at AED 1.2M with a 60/40 payment plan."
	storeChunk(t, chunks, scope, "doc-1", 0, content)

	// The mock embeds identical text identically, so querying with the
	// chunk's own text is a guaranteed hit.
	results, err := retriever.Retrieve(context.Background(), content, scope, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, content, results[0].Content)
	assert.Equal(t, "doc-1.txt", results[0].Source)
	assert.Greater(t, results[0].Similarity, 0.99)
}

func TestRetrieve_ScopeIsolation(t *testing.T) {
	retriever, chunks := newTestRetriever(t)

	content := "Exclusive launch pricing for the marina tower."
	storeChunk(t, chunks, core.NewScope("client-a", "general"), "doc-a", 0, content)
	storeChunk(t, chunks, core.NewScope("client-b", "general"), "doc-b", 0, content)

	results, err := retriever.Retrieve(context.Background(), content, core.ClientScope("client-a"), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a.txt", results[0].Source)
}

func TestRetrieve_RequiresScope(t *testing.T) {
	retriever, _ := newTestRetriever(t)

	_, err := retriever.Retrieve(context.Background(), "anything", core.Scope{}, 5)
	assert.ErrorIs(t, err, core.ErrEmptyScope)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	retriever, _ := newTestRetriever(t)

	_, err := retriever.Retrieve(context.Background(), "", core.ClientScope("demo"), 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRetrieve_ThresholdFiltersUnrelated(t *testing.T) {
	retriever, chunks := newTestRetriever(t)
	scope := core.NewScope("demo", "general")

	storeChunk(t, chunks, scope, "doc-1", 0, "Completely unrelated maintenance schedule for the parking garage.")

	// Different text embeds to an uncorrelated vector, far below 0.5.
	results, err := retriever.Retrieve(context.Background(), "beach villas with private pools", scope, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
