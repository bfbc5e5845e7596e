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


package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

const defaultTopK = 5

// Store implements storage.ChunkStore and storage.DocumentStore on
// PostgreSQL with the pgvector extension. Similarity is computed in SQL
// with the cosine distance operator, so ordering and thresholding happen
// where the index lives.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var (
	_ storage.ChunkStore    = (*Store)(nil)
	_ storage.DocumentStore = (*Store)(nil)
)

// Open connects to PostgreSQL using a lib/pq DSN and verifies the
// connection.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an existing database handle. Used directly by tests.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "postgres-store"),
	}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type chunkRow struct {
	ChunkID            string          `db:"chunk_id"`
	ClientID           string          `db:"client_id"`
	FolderID           string          `db:"folder_id"`
	DocumentID         string          `db:"document_id"`
	Content            string          `db:"content"`
	Embedding          pgvector.Vector `db:"embedding"`
	Metadata           []byte          `db:"metadata"`
	SourceType         string          `db:"source_type"`
	ConversionWeight   float64         `db:"conversion_weight"`
	OutcomeCorrelation float64         `db:"outcome_correlation"`
	Similarity         float64         `db:"similarity"`
}

func (r *chunkRow) toChunk() (*core.Chunk, error) {
	meta, err := core.DecodeMeta(r.Metadata)
	if err != nil {
		return nil, err
	}
	return &core.Chunk{
		ID:                 r.ChunkID,
		Scope:              core.Scope{ClientID: r.ClientID, FolderID: r.FolderID},
		DocumentID:         r.DocumentID,
		Content:            r.Content,
		Embedding:          r.Embedding.Slice(),
		Meta:               meta,
		SourceType:         core.SourceType(r.SourceType),
		ConversionWeight:   r.ConversionWeight,
		OutcomeCorrelation: r.OutcomeCorrelation,
	}, nil
}

// UpsertChunk inserts a chunk, replacing any stored chunk with the same ID.
func (s *Store) UpsertChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}

	meta, err := core.EncodeMeta(chunk.Meta)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}

	const query = `
		INSERT INTO rag_chunks (
			chunk_id, client_id, folder_id, document_id, content, embedding,
			metadata, source_type, conversion_weight, outcome_correlation, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (chunk_id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			source_type = EXCLUDED.source_type,
			conversion_weight = EXCLUDED.conversion_weight,
			outcome_correlation = EXCLUDED.outcome_correlation,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		chunk.ID,
		chunk.Scope.ClientID,
		chunk.Scope.FolderID,
		chunk.DocumentID,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
		meta,
		string(chunk.SourceType),
		chunk.ConversionWeight,
		chunk.OutcomeCorrelation,
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("chunk upsert failed", "chunkID", chunk.ID, "err", err)
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return nil
}

// QuerySimilar finds chunks within the query scope whose cosine similarity
// to embedding is at or above the threshold, ordered most similar first.
func (s *Store) QuerySimilar(ctx context.Context, embedding []float32, q storage.SimilarityQuery) ([]core.Match, error) {
	if err := q.Scope.Validate(); err != nil {
		return nil, storage.ErrScopeRequired
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", storage.ErrInvalidQuery)
	}

	topK := q.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	const query = `
		SELECT chunk_id, client_id, folder_id, document_id, content, embedding,
		       metadata, source_type, conversion_weight, outcome_correlation,
		       1 - (embedding <=> $1) AS similarity
		FROM rag_chunks
		WHERE client_id = $2
		  AND ($3 = '' OR folder_id = $3)
		  AND 1 - (embedding <=> $1) >= $4
		ORDER BY embedding <=> $1
		LIMIT $5
	`
	var rows []chunkRow
	err := s.db.SelectContext(ctx, &rows, query,
		pgvector.NewVector(embedding),
		q.Scope.ClientID,
		q.Scope.FolderID,
		q.Threshold,
		topK,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}

	matches := make([]core.Match, 0, len(rows))
	for i := range rows {
		chunk, err := rows[i].toChunk()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
		}
		matches = append(matches, core.Match{Chunk: chunk, Similarity: rows[i].Similarity})
	}
	return matches, nil
}

// DeleteByDocument removes every chunk belonging to a document.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if documentID == "" {
		return 0, core.ErrEmptyDocumentID
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM rag_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return int(n), nil
}

// ListByScope pages through a scope's chunks in chunk_id order. The
// continuation token is the last chunk_id of the previous page.
func (s *Store) ListByScope(ctx context.Context, scope core.Scope, pageToken string, limit int) ([]*core.Chunk, string, error) {
	if err := scope.Validate(); err != nil {
		return nil, "", storage.ErrScopeRequired
	}
	if limit <= 0 {
		limit = 100
	}

	const query = `
		SELECT chunk_id, client_id, folder_id, document_id, content, embedding,
		       metadata, source_type, conversion_weight, outcome_correlation,
		       0 AS similarity
		FROM rag_chunks
		WHERE client_id = $1
		  AND ($2 = '' OR folder_id = $2)
		  AND chunk_id > $3
		ORDER BY chunk_id
		LIMIT $4
	`
	var rows []chunkRow
	err := s.db.SelectContext(ctx, &rows, query, scope.ClientID, scope.FolderID, pageToken, limit)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", storage.ErrRead, err)
	}

	chunks := make([]*core.Chunk, len(rows))
	for i := range rows {
		chunk, err := rows[i].toChunk()
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", storage.ErrRead, err)
		}
		chunks[i] = chunk
	}

	next := ""
	if len(chunks) == limit {
		next = chunks[len(chunks)-1].ID
	}
	return chunks, next, nil
}

// CountByDocument returns the number of chunks stored for a document.
func (s *Store) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM rag_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}
	return n, nil
}

type documentRow struct {
	ID         string          `db:"id"`
	TenantID   int64           `db:"tenant_id"`
	ClientID   string          `db:"client_id"`
	FolderID   string          `db:"folder_id"`
	SourceName string          `db:"source_name"`
	SourceType string          `db:"source_type"`
	Content    string          `db:"content"`
	Embedding  *pgvector.Vector `db:"embedding"`
	Processed  bool            `db:"processed"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

func (r *documentRow) toDocument() *core.Document {
	doc := &core.Document{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Scope:      core.Scope{ClientID: r.ClientID, FolderID: r.FolderID},
		SourceName: r.SourceName,
		SourceType: r.SourceType,
		Content:    r.Content,
		Processed:  r.Processed,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Embedding != nil {
		doc.Embedding = r.Embedding.Slice()
	}
	return doc
}

// PutDocument inserts a document, replacing any stored document with the
// same ID.
func (s *Store) PutDocument(ctx context.Context, doc *core.Document) error {
	if doc == nil || doc.ID == "" {
		return core.ErrEmptyDocumentID
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	var embedding any
	if len(doc.Embedding) > 0 {
		embedding = pgvector.NewVector(doc.Embedding)
	}

	const query = `
		INSERT INTO knowledge_base (
			id, tenant_id, client_id, folder_id, source_name, source_type,
			content, embedding, processed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			processed = EXCLUDED.processed,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.TenantID,
		doc.Scope.ClientID,
		doc.Scope.FolderID,
		doc.SourceName,
		doc.SourceType,
		doc.Content,
		embedding,
		doc.Processed,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	const query = `
		SELECT id, tenant_id, client_id, folder_id, source_name, source_type,
		       content, embedding, processed, created_at, updated_at
		FROM knowledge_base
		WHERE id = $1
	`
	var row documentRow
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}
	return row.toDocument(), nil
}

// ListUnprocessed returns up to limit documents without embeddings, oldest
// first.
func (s *Store) ListUnprocessed(ctx context.Context, limit int) ([]*core.Document, error) {
	const query = `
		SELECT id, tenant_id, client_id, folder_id, source_name, source_type,
		       content, embedding, processed, created_at, updated_at
		FROM knowledge_base
		WHERE processed = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}

	docs := make([]*core.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].toDocument()
	}
	return docs, nil
}

// MarkProcessed stores a document's embedding and flips the processed flag.
func (s *Store) MarkProcessed(ctx context.Context, id string, embedding []float32) error {
	const query = `
		UPDATE knowledge_base
		SET embedding = $2, processed = TRUE, updated_at = $3
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, id, pgvector.NewVector(embedding), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document by ID. Missing documents are not an
// error.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return core.ErrEmptyDocumentID
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_base WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return nil
}
