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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurosystems/ragkit/ai"
	"github.com/aurosystems/ragkit/chunker"
	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

// DefaultMinContentLength is the floor below which extracted content is
// skipped instead of ingested. Tiny fragments pollute retrieval.
const DefaultMinContentLength = 50

// IngestRequest describes one source to ingest.
type IngestRequest struct {
	Scope      core.Scope
	TenantID   int64
	SourceName string
	SourceType string // "text", "json", "url", "pdf"; empty means text
	Content    string // inline content for text/json sources
	URL        string // fetch target for url sources
	Data       []byte // raw bytes for pdf sources

	// DocumentID pins the document identity. Empty means a fresh UUID.
	DocumentID string

	// Replace marks a dashboard-sync push: the previous synced document for
	// this scope is removed, chunks first, before the new one is written.
	Replace bool
}

// Report summarizes one document's ingestion.
type Report struct {
	DocumentID string
	Chunks     int
	Succeeded  int
	Errored    int
	Skipped    bool
}

// BatchReport summarizes a ProcessPending run.
type BatchReport struct {
	Processed int
	Errored   int
}

// Pipeline turns source documents into embedded, scoped knowledge chunks.
// Processing is strictly sequential: one chunk's embedding completes before
// the next begins, and per-chunk failures never abort their siblings.
type Pipeline struct {
	chunks     storage.ChunkStore
	docs       storage.DocumentStore
	provider   ai.Provider
	ocr        OCRService
	httpClient *http.Client

	chunkSize    int
	chunkOverlap int
	minContent   int
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the window geometry used to split documents.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if err := chunker.Validate(size, overlap); err != nil {
			return err
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithMinContentLength sets the skip floor for extracted content.
func WithMinContentLength(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			n = 0
		}
		p.minContent = n
		return nil
	}
}

// WithOCR provides the OCR service used for pdf sources.
func WithOCR(ocr OCRService) Option {
	return func(p *Pipeline) error {
		p.ocr = ocr
		return nil
	}
}

// WithHTTPClient overrides the HTTP client used for url sources.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) error {
		if client != nil {
			p.httpClient = client
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(chunks storage.ChunkStore, docs storage.DocumentStore, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}
	if docs == nil {
		return nil, ErrDocumentStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	p := &Pipeline{
		chunks:       chunks,
		docs:         docs,
		provider:     provider,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		chunkSize:    chunker.DefaultSize,
		chunkOverlap: chunker.DefaultOverlap,
		minContent:   DefaultMinContentLength,
		logger:       slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Ingest extracts, stores, chunks, and embeds one source document.
//
// Content below the minimum length is skipped with Report.Skipped set; this
// is not an error. Per-chunk embedding or store failures are logged and
// counted without aborting the remaining chunks. The document is marked
// processed unless every chunk failed, so a fully failed document stays
// eligible for a retry pass.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (Report, error) {
	if err := req.Scope.Validate(); err != nil {
		return Report{}, err
	}
	if strings.Contains(req.DocumentID, ":") {
		return Report{}, core.ErrDocumentIDSeparator
	}

	content, err := p.extract(ctx, req)
	if err != nil {
		return Report{}, err
	}

	if len(content) < p.minContent {
		p.logger.Info("skipping short content",
			"source", req.SourceName, "length", len(content), "minimum", p.minContent)
		return Report{Skipped: true}, nil
	}

	docID := req.DocumentID
	if req.Replace {
		if docID == "" {
			docID = syncDocumentID(req.Scope)
		}
		// Replace-mode pushes carry the full current knowledge snapshot, so
		// stale chunks from the previous push must go before the new write.
		report := storage.DeleteDocumentCascade(ctx, p.chunks, p.docs, docID)
		if !report.OK() {
			p.logger.Warn("previous synced document not fully removed",
				"documentID", docID, "chunkErr", report.ChunkErr, "documentErr", report.DocumentErr)
		}
	}
	if docID == "" {
		docID = uuid.NewString()
	}

	doc := &core.Document{
		ID:         docID,
		TenantID:   req.TenantID,
		Scope:      req.Scope,
		SourceName: req.SourceName,
		SourceType: req.SourceType,
		Content:    content,
	}
	if doc.SourceType == "" {
		doc.SourceType = "text"
	}
	if err := p.docs.PutDocument(ctx, doc); err != nil {
		return Report{DocumentID: docID}, err
	}

	return p.processDocument(ctx, doc, req.Replace)
}

// syncDocumentID is the stable identity of a scope's dashboard-sync
// document. Every push replaces the previous one.
func syncDocumentID(scope core.Scope) string {
	if scope.FolderID == "" {
		return fmt.Sprintf("sync_%s", scope.ClientID)
	}
	return fmt.Sprintf("sync_%s_%s", scope.ClientID, scope.FolderID)
}

// processDocument chunks and embeds a stored document and upserts its
// chunks. Chunks are processed one at a time, in order.
func (p *Pipeline) processDocument(ctx context.Context, doc *core.Document, synced bool) (Report, error) {
	windows, err := chunker.Split(doc.Content, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return Report{DocumentID: doc.ID}, err
	}

	report := Report{DocumentID: doc.ID, Chunks: len(windows)}
	embedder := p.provider.Embedder()

	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		embedding, err := embedder.EmbedDocument(ctx, window.Text)
		if err != nil {
			p.logger.Warn("chunk embedding failed",
				"documentID", doc.ID, "ordinal", window.Ordinal, "err", err)
			report.Errored++
			continue
		}

		meta := core.NewIngestedMeta(doc.SourceName, window.Ordinal, core.HashContent(window.Text))
		meta.Synced = synced

		chunk := &core.Chunk{
			ID:         core.ChunkID(doc.Scope, doc.ID, window.Ordinal),
			Scope:      doc.Scope,
			DocumentID: doc.ID,
			Content:    window.Text,
			Embedding:  embedding,
			Meta:       meta,
			SourceType: core.SourceDocument,
		}
		if err := p.chunks.UpsertChunk(ctx, chunk); err != nil {
			p.logger.Warn("chunk upsert failed",
				"documentID", doc.ID, "ordinal", window.Ordinal, "err", err)
			report.Errored++
			continue
		}
		report.Succeeded++
	}

	if report.Succeeded == 0 {
		p.logger.Error("document fully failed, left unprocessed for retry",
			"documentID", doc.ID, "chunks", report.Chunks)
		return report, nil
	}

	docEmbedding, err := embedder.EmbedDocument(ctx, doc.Content)
	if err != nil {
		p.logger.Warn("whole-document embedding failed, left unprocessed",
			"documentID", doc.ID, "err", err)
		return report, nil
	}
	if err := p.docs.MarkProcessed(ctx, doc.ID, docEmbedding); err != nil {
		p.logger.Warn("failed to mark document processed", "documentID", doc.ID, "err", err)
	}

	p.logger.Info("document ingested",
		"documentID", doc.ID, "chunks", report.Chunks,
		"succeeded", report.Succeeded, "errored", report.Errored)
	return report, nil
}

// ProcessPending embeds up to limit stored documents that have no embedding
// yet. Documents are processed one at a time; a document that fails in full
// is counted and left eligible for the next run. Re-invocation is safe
// because chunk identifiers are deterministic and upserts are keyed.
func (p *Pipeline) ProcessPending(ctx context.Context, limit int) (BatchReport, error) {
	pending, err := p.docs.ListUnprocessed(ctx, limit)
	if err != nil {
		return BatchReport{}, err
	}

	var batch BatchReport
	for _, doc := range pending {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		report, err := p.processDocument(ctx, doc, false)
		if err != nil || report.Succeeded == 0 {
			batch.Errored++
			continue
		}
		batch.Processed++
	}

	p.logger.Info("pending documents processed",
		"processed", batch.Processed, "errored", batch.Errored)
	return batch, nil
}
