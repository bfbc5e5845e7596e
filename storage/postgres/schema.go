package postgres

import (
	"context"
	"fmt"
	"strings"
)

// defaultDimensions matches text-embedding-3-small / embeddinggemma output.
const defaultDimensions = 768

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS rag_chunks (
		chunk_id            TEXT PRIMARY KEY,
		client_id           TEXT NOT NULL,
		folder_id           TEXT NOT NULL DEFAULT '',
		document_id         TEXT NOT NULL,
		content             TEXT NOT NULL,
		embedding           VECTOR(%[1]d) NOT NULL,
		metadata            JSONB NOT NULL DEFAULT '{}',
		source_type         TEXT NOT NULL DEFAULT 'document',
		conversion_weight   DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		outcome_correlation DOUBLE PRECISION NOT NULL DEFAULT 0.0,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_rag_chunks_scope
		ON rag_chunks (client_id, folder_id)`,

	`CREATE INDEX IF NOT EXISTS idx_rag_chunks_document
		ON rag_chunks (document_id)`,

	`CREATE INDEX IF NOT EXISTS idx_rag_chunks_embedding
		ON rag_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,

	`CREATE TABLE IF NOT EXISTS knowledge_base (
		id          TEXT PRIMARY KEY,
		tenant_id   BIGINT NOT NULL DEFAULT 0,
		client_id   TEXT NOT NULL,
		folder_id   TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		content     TEXT NOT NULL,
		embedding   VECTOR(%[1]d),
		processed   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_knowledge_base_unprocessed
		ON knowledge_base (created_at) WHERE processed = FALSE`,
}

// EnsureSchema creates the knowledge tables, indexes, and the pgvector
// extension if they are missing. dimensions fixes the embedding column
// width; pass 0 for the default.
func (s *Store) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "%[1]d") {
			stmt = fmt.Sprintf(stmt, dimensions)
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
