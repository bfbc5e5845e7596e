package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurosystems/ragkit/ai/mock"
	"github.com/aurosystems/ragkit/chunker"
	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
	badgerstore "github.com/aurosystems/ragkit/storage/badger"
)

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *badgerstore.ChunkStore, *badgerstore.DocumentStore, *mock.MockEmbedder) {
	t.Helper()

	chunks, docs, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithEmbedder(embedder)

	pipeline, err := NewPipeline(chunks, docs, provider, opts...)
	require.NoError(t, err)
	return pipeline, chunks, docs, embedder
}

// buildContent produces deterministic prose of exactly n characters.
func buildContent(n int) string {
	const sentence = "The marina towers offer studios through three bedroom units with flexible payment plans. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return b.String()[:n]
}

func TestIngestEndToEnd(t *testing.T) {
	pipeline, chunks, docs, _ := newTestPipeline(t)
	ctx := context.Background()
	scope := core.NewScope("demo", "general")

	content := buildContent(2500)
	report, err := pipeline.Ingest(ctx, IngestRequest{
		Scope:      scope,
		SourceName: "brochure.txt",
		SourceType: "text",
		Content:    content,
		DocumentID: "doc-1",
	})
	require.NoError(t, err)

	// 2500 chars at 800/100 geometry produce 4 windows.
	assert.Equal(t, 4, report.Chunks)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 0, report.Errored)
	assert.False(t, report.Skipped)

	count, err := chunks.CountByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	doc, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, doc.Processed)
	assert.NotEmpty(t, doc.Embedding)

	// Chunk identifiers are deterministic composite keys.
	matches, err := chunks.QuerySimilar(ctx, mock.DeterministicVector(content[:800], 384), storage.SimilarityQuery{
		Scope: scope, Threshold: 0.99, TopK: 1,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "demo:general:doc-1:0", matches[0].Chunk.ID)
	assert.Equal(t, "brochure.txt", matches[0].Chunk.Meta.SourceName)
}

func TestIngestIsIdempotent(t *testing.T) {
	pipeline, chunks, _, _ := newTestPipeline(t)
	ctx := context.Background()

	req := IngestRequest{
		Scope:      core.NewScope("demo", "general"),
		SourceName: "brochure.txt",
		Content:    buildContent(2500),
		DocumentID: "doc-1",
	}

	_, err := pipeline.Ingest(ctx, req)
	require.NoError(t, err)
	_, err = pipeline.Ingest(ctx, req)
	require.NoError(t, err)

	count, err := chunks.CountByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "re-ingestion must replace, not duplicate")
}

func TestIngestSkipsShortContent(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	report, err := pipeline.Ingest(context.Background(), IngestRequest{
		Scope:      core.ClientScope("demo"),
		SourceName: "tiny.txt",
		Content:    "too small",
	})
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.Chunks)
}

func TestIngestRequiresScope(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	_, err := pipeline.Ingest(context.Background(), IngestRequest{
		SourceName: "a.txt",
		Content:    buildContent(100),
	})
	assert.ErrorIs(t, err, core.ErrEmptyScope)
}

func TestIngestExtractionFailure(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	_, err := pipeline.Ingest(context.Background(), IngestRequest{
		Scope:      core.ClientScope("demo"),
		SourceName: "broken.json",
		SourceType: "json",
		Content:    "{not json",
	})
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestIngestPartialChunkFailure(t *testing.T) {
	pipeline, chunks, docs, embedder := newTestPipeline(t)
	ctx := context.Background()

	content := buildContent(2500)
	windows, err := chunker.Split(content, chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	require.Len(t, windows, 4)

	// One window's embedding fails; its siblings must still land.
	failing := windows[2].Text
	embedder.EmbedDocumentFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == failing {
			return nil, errors.New("provider unavailable")
		}
		return mock.DeterministicVector(text, 384), nil
	}

	report, err := pipeline.Ingest(ctx, IngestRequest{
		Scope:      core.NewScope("demo", "general"),
		SourceName: "brochure.txt",
		Content:    content,
		DocumentID: "doc-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Chunks)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Errored)

	count, err := chunks.CountByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	doc, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, doc.Processed)
}

func TestIngestFullyFailedDocumentStaysPending(t *testing.T) {
	pipeline, _, docs, embedder := newTestPipeline(t)
	ctx := context.Background()

	embedder.EmbedDocumentFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("provider down")
	}

	report, err := pipeline.Ingest(ctx, IngestRequest{
		Scope:      core.ClientScope("demo"),
		SourceName: "a.txt",
		Content:    buildContent(200),
		DocumentID: "doc-1",
	})
	require.NoError(t, err)
	assert.Zero(t, report.Succeeded)
	assert.Equal(t, report.Chunks, report.Errored)

	doc, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, doc.Processed, "fully failed document must stay eligible for retry")
}

func TestIngestReplaceMode(t *testing.T) {
	pipeline, chunks, _, _ := newTestPipeline(t)
	ctx := context.Background()
	scope := core.NewScope("demo", "general")

	payload := `{"sections":[{"title":"Pricing","content":"` + buildContent(900) + `"}]}`
	report, err := pipeline.Ingest(ctx, IngestRequest{
		Scope:      scope,
		SourceName: "dashboard",
		SourceType: "json",
		Content:    payload,
		Replace:    true,
	})
	require.NoError(t, err)
	firstID := report.DocumentID
	firstCount, err := chunks.CountByDocument(ctx, firstID)
	require.NoError(t, err)
	require.Greater(t, firstCount, 0)

	// A second push replaces the first document entirely.
	smaller := `{"sections":[{"title":"Pricing","content":"` + buildContent(100) + `"}]}`
	report, err = pipeline.Ingest(ctx, IngestRequest{
		Scope:      scope,
		SourceName: "dashboard",
		SourceType: "json",
		Content:    smaller,
		Replace:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, firstID, report.DocumentID, "sync pushes share a stable document identity")

	count, err := chunks.CountByDocument(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcessPendingPartialFailure(t *testing.T) {
	pipeline, _, docs, embedder := newTestPipeline(t)
	ctx := context.Background()

	embedder.EmbedDocumentFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "corrupted") {
			return nil, errors.New("provider rejected input")
		}
		return mock.DeterministicVector(text, 384), nil
	}

	contents := []string{
		buildContent(120),
		buildContent(150),
		"corrupted " + buildContent(120),
		buildContent(180),
		buildContent(210),
	}
	for i, content := range contents {
		doc := &core.Document{
			ID:         string(rune('a'+i)) + "-doc",
			Scope:      core.ClientScope("demo"),
			SourceName: "batch.txt",
			SourceType: "text",
			Content:    content,
		}
		require.NoError(t, docs.PutDocument(ctx, doc))
	}

	batch, err := pipeline.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, batch.Processed)
	assert.Equal(t, 1, batch.Errored)

	// The failed document remains pending for the next run.
	pending, err := docs.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].Content, "corrupted")
}
