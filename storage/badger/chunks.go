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


package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

const defaultTopK = 5

// ChunkStore implements storage.ChunkStore on an embedded BadgerDB.
// Similarity is computed in-process over a scoped key prefix scan, so the
// scan never crosses a tenant boundary.
type ChunkStore struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// NewChunkStore creates a chunk store on the given backend.
func NewChunkStore(backend *Backend) *ChunkStore {
	return &ChunkStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-chunks"),
	}
}

// storedChunk is the JSON value format for a chunk record.
type storedChunk struct {
	ID                 string          `json:"id"`
	ClientID           string          `json:"client_id"`
	FolderID           string          `json:"folder_id,omitempty"`
	DocumentID         string          `json:"document_id"`
	Content            string          `json:"content"`
	Embedding          []float32       `json:"embedding"`
	Meta               json.RawMessage `json:"meta"`
	SourceType         string          `json:"source_type"`
	ConversionWeight   float64         `json:"conversion_weight,omitempty"`
	OutcomeCorrelation float64         `json:"outcome_correlation,omitempty"`
}

func marshalChunk(chunk *core.Chunk) ([]byte, error) {
	meta, err := core.EncodeMeta(chunk.Meta)
	if err != nil {
		return nil, err
	}
	return json.Marshal(storedChunk{
		ID:                 chunk.ID,
		ClientID:           chunk.Scope.ClientID,
		FolderID:           chunk.Scope.FolderID,
		DocumentID:         chunk.DocumentID,
		Content:            chunk.Content,
		Embedding:          chunk.Embedding,
		Meta:               meta,
		SourceType:         string(chunk.SourceType),
		ConversionWeight:   chunk.ConversionWeight,
		OutcomeCorrelation: chunk.OutcomeCorrelation,
	})
}

func unmarshalChunk(data []byte) (*core.Chunk, error) {
	var stored storedChunk
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	meta, err := core.DecodeMeta(stored.Meta)
	if err != nil {
		return nil, err
	}
	return &core.Chunk{
		ID:                 stored.ID,
		Scope:              core.Scope{ClientID: stored.ClientID, FolderID: stored.FolderID},
		DocumentID:         stored.DocumentID,
		Content:            stored.Content,
		Embedding:          stored.Embedding,
		Meta:               meta,
		SourceType:         core.SourceType(stored.SourceType),
		ConversionWeight:   stored.ConversionWeight,
		OutcomeCorrelation: stored.OutcomeCorrelation,
	}, nil
}

// UpsertChunk inserts a chunk, replacing any stored chunk with the same ID.
func (s *ChunkStore) UpsertChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}

	value, err := marshalChunk(chunk)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}

	key := makeChunkKey(chunk.Scope, chunk.ID)
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(key, value); err != nil {
			return err
		}
		if chunk.DocumentID != "" {
			return tx.Set(makeChunkDocKey(chunk.DocumentID, chunk.ID), key)
		}
		return nil
	}, true)
	if err != nil {
		s.logger.Error("chunk upsert failed", "chunkID", chunk.ID, "err", err)
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return nil
}

// QuerySimilar scans the chunks under the query scope's key prefix and
// returns those whose cosine similarity to embedding is at or above the
// threshold, most similar first.
func (s *ChunkStore) QuerySimilar(ctx context.Context, embedding []float32, q storage.SimilarityQuery) ([]core.Match, error) {
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

	var matches []core.Match
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeScopePrefix(q.Scope)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = unmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(chunk.Embedding) == 0 {
				continue
			}

			similarity := cosineSimilarity(embedding, chunk.Embedding)
			if similarity >= q.Threshold {
				matches = append(matches, core.Match{Chunk: chunk, Similarity: similarity})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}

	slices.SortFunc(matches, func(a, b core.Match) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return 0
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteByDocument removes every chunk belonging to a document, along with
// the document index entries.
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if documentID == "" {
		return 0, core.ErrEmptyDocumentID
	}

	deleted := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkDocPrefix(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var indexKeys, chunkKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			indexKeys = append(indexKeys, item.KeyCopy(nil))
			chunkKey, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			chunkKeys = append(chunkKeys, chunkKey)
		}
		iter.Close()

		for i := range chunkKeys {
			if err := tx.Delete(chunkKeys[i]); err != nil {
				return err
			}
			if err := tx.Delete(indexKeys[i]); err != nil {
				return err
			}
			deleted++
		}
		return nil
	}, true)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return deleted, nil
}

// CountByDocument returns the number of chunks stored for a document.
func (s *ChunkStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkDocPrefix(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}
	return count, nil
}

// ListByScope pages through a scope's chunks in key order. The continuation
// token is the last key of the previous page.
func (s *ChunkStore) ListByScope(ctx context.Context, scope core.Scope, pageToken string, limit int) ([]*core.Chunk, string, error) {
	if err := scope.Validate(); err != nil {
		return nil, "", storage.ErrScopeRequired
	}
	if limit <= 0 {
		limit = 100
	}

	var chunks []*core.Chunk
	var lastKey string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeScopePrefix(scope)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		if pageToken != "" {
			iter.Seek([]byte(pageToken))
			if iter.Valid() && string(iter.Item().Key()) == pageToken {
				iter.Next()
			}
		} else {
			iter.Rewind()
		}

		for ; iter.Valid() && len(chunks) < limit; iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = unmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
			lastKey = string(iter.Item().Key())
		}
		return nil
	}, false)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", storage.ErrRead, err)
	}

	if len(chunks) < limit {
		lastKey = ""
	}
	return chunks, lastKey, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (s *ChunkStore) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
