package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

func newTestChunk(scope core.Scope, documentID string, ordinal int, content string, embedding []float32) *core.Chunk {
	return &core.Chunk{
		ID:         core.ChunkID(scope, documentID, ordinal),
		Scope:      scope,
		DocumentID: documentID,
		Content:    content,
		Embedding:  embedding,
		Meta:       core.NewIngestedMeta("test.txt", ordinal, core.HashContent(content)),
		SourceType: core.SourceDocument,
	}
}

func TestChunkUpsertAndQuery(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	scope := core.NewScope("demo", "general")

	chunk := newTestChunk(scope, "doc-1", 0, "Two bedroom apartments start at AED 1.2M.", []float32{1, 0, 0})
	if err := chunks.UpsertChunk(ctx, chunk); err != nil {
		t.Fatalf("Failed to upsert chunk: %v", err)
	}

	matches, err := chunks.QuerySimilar(ctx, []float32{1, 0, 0}, storage.SimilarityQuery{
		Scope:     scope,
		Threshold: 0.5,
		TopK:      5,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if matches[0].Chunk.ID != chunk.ID {
		t.Fatalf("Expected chunk %s, got %s", chunk.ID, matches[0].Chunk.ID)
	}
	if matches[0].Similarity < 0.999 {
		t.Fatalf("Expected similarity ~1.0, got %f", matches[0].Similarity)
	}
}

func TestChunkUpsertIsIdempotent(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	scope := core.NewScope("demo", "general")

	first := newTestChunk(scope, "doc-1", 0, "original content", []float32{1, 0, 0})
	if err := chunks.UpsertChunk(ctx, first); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	// Same ID, replacement content. One record should remain.
	second := newTestChunk(scope, "doc-1", 0, "replacement content", []float32{1, 0, 0})
	if err := chunks.UpsertChunk(ctx, second); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	count, err := chunks.CountByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 chunk after re-upsert, got %d", count)
	}

	matches, err := chunks.QuerySimilar(ctx, []float32{1, 0, 0}, storage.SimilarityQuery{
		Scope: scope, Threshold: 0.5, TopK: 5,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Chunk.Content != "replacement content" {
		t.Fatalf("Expected replacement content to win, got %+v", matches)
	}
}

func TestQuerySimilarScopeIsolation(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	scopeA := core.NewScope("client-a", "general")
	scopeB := core.NewScope("client-b", "general")

	embedding := []float32{1, 0, 0}
	if err := chunks.UpsertChunk(ctx, newTestChunk(scopeA, "doc-a", 0, "client A knowledge", embedding)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := chunks.UpsertChunk(ctx, newTestChunk(scopeB, "doc-b", 0, "client B knowledge", embedding)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Identical query embedding, scoped to A: only A's chunk comes back.
	matches, err := chunks.QuerySimilar(ctx, embedding, storage.SimilarityQuery{
		Scope: scopeA, Threshold: 0.5, TopK: 10,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if matches[0].Chunk.Scope.ClientID != "client-a" {
		t.Fatalf("Scope leak: got chunk from %s", matches[0].Chunk.Scope.ClientID)
	}
}

func TestQuerySimilarFolderWidening(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	embedding := []float32{1, 0, 0}

	if err := chunks.UpsertChunk(ctx, newTestChunk(core.NewScope("demo", "pricing"), "doc-1", 0, "pricing info", embedding)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := chunks.UpsertChunk(ctx, newTestChunk(core.NewScope("demo", "amenities"), "doc-2", 0, "amenity info", embedding)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Folder-scoped query sees one folder.
	matches, err := chunks.QuerySimilar(ctx, embedding, storage.SimilarityQuery{
		Scope: core.NewScope("demo", "pricing"), Threshold: 0.5, TopK: 10,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match in folder scope, got %d", len(matches))
	}

	// Client-scoped query sees all folders.
	matches, err = chunks.QuerySimilar(ctx, embedding, storage.SimilarityQuery{
		Scope: core.ClientScope("demo"), Threshold: 0.5, TopK: 10,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches in client scope, got %d", len(matches))
	}
}

func TestQuerySimilarRequiresScope(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	_, err = chunks.QuerySimilar(context.Background(), []float32{1, 0, 0}, storage.SimilarityQuery{
		Threshold: 0.5, TopK: 5,
	})
	if !errors.Is(err, storage.ErrScopeRequired) {
		t.Fatalf("Expected ErrScopeRequired, got %v", err)
	}
}

func TestQuerySimilarThresholdAndOrder(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	scope := core.NewScope("demo", "general")

	// Orthogonal, angled, and identical vectors against query [1,0,0].
	if err := chunks.UpsertChunk(ctx, newTestChunk(scope, "doc-1", 0, "orthogonal", []float32{0, 1, 0})); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := chunks.UpsertChunk(ctx, newTestChunk(scope, "doc-1", 1, "angled", []float32{1, 1, 0})); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := chunks.UpsertChunk(ctx, newTestChunk(scope, "doc-1", 2, "identical", []float32{2, 0, 0})); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	matches, err := chunks.QuerySimilar(ctx, []float32{1, 0, 0}, storage.SimilarityQuery{
		Scope: scope, Threshold: 0.5, TopK: 10,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches above threshold, got %d", len(matches))
	}
	if matches[0].Chunk.Content != "identical" {
		t.Fatalf("Expected identical vector first, got %s", matches[0].Chunk.Content)
	}
	if matches[1].Chunk.Content != "angled" {
		t.Fatalf("Expected angled vector second, got %s", matches[1].Chunk.Content)
	}
}

func TestDeleteByDocument(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	scope := core.NewScope("demo", "general")

	for i := 0; i < 3; i++ {
		if err := chunks.UpsertChunk(ctx, newTestChunk(scope, "doc-1", i, "content", []float32{1, 0, 0})); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	if err := chunks.UpsertChunk(ctx, newTestChunk(scope, "doc-2", 0, "other", []float32{1, 0, 0})); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	deleted, err := chunks.DeleteByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("Expected 3 deleted, got %d", deleted)
	}

	// doc-2 is untouched.
	count, err := chunks.CountByDocument(ctx, "doc-2")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected doc-2 to keep its chunk, got %d", count)
	}

	// Deleting a document with no chunks is not an error.
	deleted, err = chunks.DeleteByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("Expected 0 deleted on repeat, got %d", deleted)
	}
}

func TestUpsertRejectsSeparatorInScope(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	// A client id carrying the key separator would sort its keys inside
	// client "a"'s scan prefix, so the write must be refused outright.
	hostile := newTestChunk(core.NewScope("a:evil", "general"), "doc-1", 0, "secret tenant data", []float32{1, 0, 0})
	if err := chunks.UpsertChunk(ctx, hostile); !errors.Is(err, core.ErrScopeSeparator) {
		t.Fatalf("Expected ErrScopeSeparator, got %v", err)
	}

	matches, err := chunks.QuerySimilar(ctx, []float32{1, 0, 0}, storage.SimilarityQuery{
		Scope:     core.ClientScope("a"),
		Threshold: 0.5,
		TopK:      5,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("Client \"a\" received %d chunk(s) belonging to another tenant", len(matches))
	}
}

func TestUpsertRejectsSeparatorInDocumentID(t *testing.T) {
	chunks, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	chunk := newTestChunk(core.NewScope("demo", "general"), "doc:1", 0, "content", []float32{1, 0, 0})
	if err := chunks.UpsertChunk(context.Background(), chunk); !errors.Is(err, core.ErrDocumentIDSeparator) {
		t.Fatalf("Expected ErrDocumentIDSeparator, got %v", err)
	}
}
