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

// Package ragkit is a tenant-scoped knowledge pipeline for conversational
// AI systems: documents go in, embedded knowledge chunks come out, and
// closed conversations feed learned knowledge back into the same store.
//
// KnowledgeBase is the embedded-storage entry point. Callers that run
// against PostgreSQL wire the pieces directly from storage/postgres.
package ragkit

import (
	"log/slog"

	"github.com/aurosystems/ragkit/ai"
	"github.com/aurosystems/ragkit/ai/openai"
	"github.com/aurosystems/ragkit/ingestion"
	"github.com/aurosystems/ragkit/learning"
	"github.com/aurosystems/ragkit/search"
	"github.com/aurosystems/ragkit/storage"
	badgerstore "github.com/aurosystems/ragkit/storage/badger"
)

// KnowledgeBase bundles an embedded BadgerDB store with an embedding
// provider and hands out the pipeline components built on them.
type KnowledgeBase struct {
	backend   *badgerstore.Backend
	chunks    storage.ChunkStore
	documents storage.DocumentStore
	provider  ai.Provider
	logger    *slog.Logger
}

// Option configures a KnowledgeBase.
type Option func(*knowledgeBaseOptions)

type knowledgeBaseOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
}

// WithAIConfig sets the embedding service configuration used to build the
// default provider.
func WithAIConfig(config *ai.Config) Option {
	return func(o *knowledgeBaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider supplies a pre-built embedding provider, bypassing the AI
// configuration entirely. Tests use this to inject a mock.
func WithProvider(provider ai.Provider) Option {
	return func(o *knowledgeBaseOptions) {
		o.provider = provider
	}
}

// Open opens (or creates) a knowledge base at the given directory.
func Open(filePath string, opts ...Option) (*KnowledgeBase, error) {
	options := &knowledgeBaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badgerstore.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &KnowledgeBase{
		backend:   backend,
		chunks:    badgerstore.NewChunkStore(backend),
		documents: badgerstore.NewDocumentStore(backend),
		provider:  provider,
		logger:    slog.Default(),
	}, nil
}

func (kb *KnowledgeBase) Close() error {
	if err := kb.provider.Close(); err != nil {
		kb.logger.Error("error closing AI provider", "err", err)
	}
	if err := kb.chunks.Close(); err != nil {
		kb.logger.Error("error closing chunk store", "err", err)
		return err
	}
	if err := kb.documents.Close(); err != nil {
		kb.logger.Error("error closing document store", "err", err)
		return err
	}
	if err := kb.backend.Close(); err != nil {
		kb.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (kb *KnowledgeBase) ChunkStore() storage.ChunkStore {
	return kb.chunks
}

func (kb *KnowledgeBase) DocumentStore() storage.DocumentStore {
	return kb.documents
}

func (kb *KnowledgeBase) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(kb.chunks, kb.documents, kb.provider, opts...)
}

func (kb *KnowledgeBase) NewLearner(opts ...learning.LearnerOption) (*learning.Learner, error) {
	return learning.NewLearner(kb.chunks, kb.provider, opts...)
}

func (kb *KnowledgeBase) NewRetriever(opts ...search.RetrieverOption) (*search.Retriever, error) {
	return search.NewRetriever(kb.chunks, kb.provider, opts...)
}
