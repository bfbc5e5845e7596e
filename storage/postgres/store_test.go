package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewStore(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func testChunk() *core.Chunk {
	scope := core.NewScope("demo", "general")
	return &core.Chunk{
		ID:         core.ChunkID(scope, "doc-1", 0),
		Scope:      scope,
		DocumentID: "doc-1",
		Content:    "Two bedroom apartments start at AED 1.2M.",
		Embedding:  []float32{0.1, 0.2, 0.3},
		Meta:       core.NewIngestedMeta("pricing.txt", 0, core.HashContent("Two bedroom apartments start at AED 1.2M.")),
		SourceType: core.SourceDocument,
	}
}

func TestUpsertChunk(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO rag_chunks`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpsertChunk(context.Background(), testChunk())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertChunk_WriteFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO rag_chunks`).
		WillReturnError(errors.New("connection reset"))

	err := store.UpsertChunk(context.Background(), testChunk())
	assert.ErrorIs(t, err, storage.ErrWrite)
}

func TestUpsertChunk_InvalidChunk(t *testing.T) {
	store, _ := newMockStore(t)

	chunk := testChunk()
	chunk.Content = ""
	err := store.UpsertChunk(context.Background(), chunk)
	assert.ErrorIs(t, err, core.ErrInvalidChunk)
}

func TestQuerySimilar_RequiresScope(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.QuerySimilar(context.Background(), []float32{0.1}, storage.SimilarityQuery{
		Threshold: 0.5,
		TopK:      5,
	})
	assert.ErrorIs(t, err, storage.ErrScopeRequired)
}

func TestQuerySimilar(t *testing.T) {
	store, mock := newMockStore(t)

	meta, err := core.EncodeMeta(core.NewIngestedMeta("pricing.txt", 0, "abc"))
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"chunk_id", "client_id", "folder_id", "document_id", "content",
		"embedding", "metadata", "source_type", "conversion_weight",
		"outcome_correlation", "similarity",
	}).AddRow(
		"demo:general:doc-1:0", "demo", "general", "doc-1",
		"Two bedroom apartments start at AED 1.2M.",
		"[0.1,0.2,0.3]", meta, "document", 1.0, 0.0, 0.91,
	)

	mock.ExpectQuery(`SELECT chunk_id`).WillReturnRows(rows)

	matches, err := store.QuerySimilar(context.Background(), []float32{0.1, 0.2, 0.3}, storage.SimilarityQuery{
		Scope:     core.NewScope("demo", "general"),
		Threshold: 0.5,
		TopK:      5,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "demo:general:doc-1:0", matches[0].Chunk.ID)
	assert.Equal(t, "pricing.txt", matches[0].Chunk.Meta.SourceName)
	assert.InDelta(t, 0.91, matches[0].Similarity, 1e-9)
}

func TestDeleteByDocument(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM rag_chunks`).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeleteByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeleteByDocument_EmptyID(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.DeleteByDocument(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyDocumentID)
}

func TestGetDocument_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMarkProcessed_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE knowledge_base`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkProcessed(context.Background(), "missing", []float32{0.1})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
