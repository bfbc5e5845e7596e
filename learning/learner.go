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


package learning

import (
	"context"
	"log/slog"
	"time"

	"github.com/aurosystems/ragkit/ai"
	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

// Learner mines closed conversations for reusable knowledge and stores the
// results as weighted, scoped chunks. Conversations are processed one at a
// time, candidates within a conversation one at a time.
type Learner struct {
	chunks   storage.ChunkStore
	provider ai.Provider
	source   storage.ConversationSource
	guard    *Guard
	logger   *slog.Logger

	now func() time.Time // test seam for deterministic chunk ids
}

// LearnerOption configures a Learner.
type LearnerOption func(*Learner)

// WithDedupThreshold overrides the duplicate-suppression threshold.
func WithDedupThreshold(threshold float64) LearnerOption {
	return func(l *Learner) {
		l.guard = NewGuard(l.chunks, threshold)
	}
}

// WithConversationSource provides the source used by ProcessClosed.
func WithConversationSource(source storage.ConversationSource) LearnerOption {
	return func(l *Learner) {
		l.source = source
	}
}

// WithLearnerLogger sets a custom logger.
func WithLearnerLogger(logger *slog.Logger) LearnerOption {
	return func(l *Learner) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLearner creates a learner over a chunk store and embedding provider.
func NewLearner(chunks storage.ChunkStore, provider ai.Provider, opts ...LearnerOption) (*Learner, error) {
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	l := &Learner{
		chunks:   chunks,
		provider: provider,
		guard:    NewGuard(chunks, DefaultDedupThreshold),
		logger:   slog.Default().With("component", "learning"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// LearnConversation extracts candidates from one conversation, embeds them,
// filters near-duplicates, and upserts the survivors. Returns the number of
// chunks inserted. Per-candidate failures are logged and skipped; they never
// abort the remaining candidates.
func (l *Learner) LearnConversation(ctx context.Context, conv core.Conversation) (int, error) {
	inserted, err := l.learn(ctx, conv)
	return len(inserted), err
}

func (l *Learner) learn(ctx context.Context, conv core.Conversation) ([]Candidate, error) {
	if err := conv.Scope.Validate(); err != nil {
		return nil, err
	}

	candidates := ExtractCandidates(conv.Messages, conv.Outcome)
	if len(candidates) == 0 {
		l.logger.Debug("no candidates in conversation", "conversationID", conv.ID)
		return nil, nil
	}

	embedder := l.provider.Embedder()
	learnedAt := l.now().UTC()
	var inserted []Candidate

	for seq, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		embedding, err := embedder.EmbedDocument(ctx, candidate.Content)
		if err != nil {
			l.logger.Warn("candidate embedding failed",
				"conversationID", conv.ID, "seq", seq, "err", err)
			continue
		}

		duplicate, err := l.guard.IsDuplicate(ctx, embedding, conv.Scope)
		if err != nil {
			l.logger.Warn("dedup check failed",
				"conversationID", conv.ID, "seq", seq, "err", err)
			continue
		}
		if duplicate {
			l.logger.Debug("suppressing duplicate candidate",
				"conversationID", conv.ID, "topic", candidate.Topic)
			continue
		}

		sourceType := core.SourceConversationLearning
		if candidate.ChunkType == ChunkTypeClosing {
			sourceType = core.SourceWinningScript
		}

		chunk := &core.Chunk{
			ID:                 core.LearnedChunkID(conv.ID, learnedAt, seq),
			Scope:              conv.Scope,
			DocumentID:         "",
			Content:            candidate.Content,
			Embedding:          embedding,
			Meta:               core.NewLearnedMeta(conv.ID, conv.Outcome, candidate.ChunkType, candidate.Topic, learnedAt),
			SourceType:         sourceType,
			ConversionWeight:   conv.Outcome.ConversionWeight(),
			OutcomeCorrelation: conv.Outcome.Correlation(),
		}
		if err := l.chunks.UpsertChunk(ctx, chunk); err != nil {
			l.logger.Warn("learned chunk upsert failed",
				"conversationID", conv.ID, "seq", seq, "err", err)
			continue
		}
		inserted = append(inserted, candidate)
	}

	l.logger.Info("conversation learned",
		"conversationID", conv.ID, "outcome", conv.Outcome,
		"candidates", len(candidates), "inserted", len(inserted))
	return inserted, nil
}

// BatchReport summarizes a ProcessClosed run. Topics counts inserted chunks
// per topic label.
type BatchReport struct {
	Conversations int
	Learned       int
	Errored       int
	Topics        map[string]int
}

// ProcessClosed pulls conversations closed since the given time and learns
// each one. A conversation that fails is counted and skipped; it yields zero
// chunks and no retry bookkeeping.
func (l *Learner) ProcessClosed(ctx context.Context, scope core.Scope, since time.Time) (BatchReport, error) {
	if l.source == nil {
		return BatchReport{}, ErrSourceRequired
	}

	conversations, err := l.source.ListClosed(ctx, scope, since)
	if err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{Topics: make(map[string]int)}
	for _, conv := range conversations {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Conversations++
		inserted, err := l.learn(ctx, conv)
		if err != nil {
			l.logger.Warn("conversation learning failed", "conversationID", conv.ID, "err", err)
			report.Errored++
			continue
		}
		report.Learned += len(inserted)
		for _, candidate := range inserted {
			report.Topics[candidate.Topic]++
		}
	}

	l.logger.Info("closed conversations processed",
		"conversations", report.Conversations, "learned", report.Learned, "errored", report.Errored)
	return report, nil
}
