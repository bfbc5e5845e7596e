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
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

// DocumentStore implements storage.DocumentStore on an embedded BadgerDB.
type DocumentStore struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a document store on the given backend.
func NewDocumentStore(backend *Backend) *DocumentStore {
	return &DocumentStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-documents"),
	}
}

type storedDocument struct {
	ID         string            `json:"id"`
	TenantID   int64             `json:"tenant_id,omitempty"`
	ClientID   string            `json:"client_id"`
	FolderID   string            `json:"folder_id,omitempty"`
	SourceName string            `json:"source_name"`
	SourceType string            `json:"source_type"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Processed  bool              `json:"processed"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func marshalDocument(doc *core.Document) ([]byte, error) {
	return json.Marshal(storedDocument{
		ID:         doc.ID,
		TenantID:   doc.TenantID,
		ClientID:   doc.Scope.ClientID,
		FolderID:   doc.Scope.FolderID,
		SourceName: doc.SourceName,
		SourceType: doc.SourceType,
		Content:    doc.Content,
		Metadata:   doc.Metadata,
		Embedding:  doc.Embedding,
		Processed:  doc.Processed,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	})
}

func unmarshalDocument(data []byte) (*core.Document, error) {
	var stored storedDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &core.Document{
		ID:         stored.ID,
		TenantID:   stored.TenantID,
		Scope:      core.Scope{ClientID: stored.ClientID, FolderID: stored.FolderID},
		SourceName: stored.SourceName,
		SourceType: stored.SourceType,
		Content:    stored.Content,
		Metadata:   stored.Metadata,
		Embedding:  stored.Embedding,
		Processed:  stored.Processed,
		CreatedAt:  stored.CreatedAt,
		UpdatedAt:  stored.UpdatedAt,
	}, nil
}

// PutDocument inserts a document, replacing any stored document with the
// same ID.
func (s *DocumentStore) PutDocument(ctx context.Context, doc *core.Document) error {
	if doc == nil || doc.ID == "" {
		return core.ErrEmptyDocumentID
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	value, err := marshalDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeDocKey(doc.ID), value)
	}, true)
	if err != nil {
		s.logger.Error("document write failed", "documentID", doc.ID, "err", err)
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var doc *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			doc, err = unmarshalDocument(val)
			return err
		})
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}
	return doc, nil
}

// ListUnprocessed returns up to limit documents without embeddings, oldest
// first.
func (s *DocumentStore) ListUnprocessed(ctx context.Context, limit int) ([]*core.Document, error) {
	var docs []*core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = unmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if !doc.Processed {
				docs = append(docs, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}

	slices.SortFunc(docs, func(a, b *core.Document) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// MarkProcessed stores a document's embedding and flips the processed flag.
func (s *DocumentStore) MarkProcessed(ctx context.Context, id string, embedding []float32) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	doc.Embedding = embedding
	doc.Processed = true
	return s.PutDocument(ctx, doc)
}

// DeleteDocument removes a document by ID. Missing documents are not an
// error.
func (s *DocumentStore) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return core.ErrEmptyDocumentID
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Delete(makeDocKey(id))
	}, true)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWrite, err)
	}
	return nil
}

// Close is a no-op; the shared backend owns the database handle.
func (s *DocumentStore) Close() error {
	return nil
}
