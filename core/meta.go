package core

import (
	"encoding/json"
	"time"
)

// ChunkMeta is the tagged metadata attached to a chunk. Exactly one variant
// exists per source type; the Kind discriminator selects it when decoding
// the store's metadata bag.
type ChunkMeta struct {
	Kind       string `json:"kind"` // "ingested" or "learned"
	SourceName string `json:"source_name,omitempty"`
	Topic      string `json:"topic,omitempty"`
	ChunkType  string `json:"chunk_type,omitempty"`

	// Ingested fields
	ChunkIndex  int    `json:"chunk_index,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
	Synced      bool   `json:"is_sync,omitempty"`

	// Learned fields
	ConversationID string    `json:"conversation_id,omitempty"`
	Outcome        Outcome   `json:"outcome,omitempty"`
	LearnedAt      time.Time `json:"learned_at,omitzero"`
}

const (
	metaKindIngested = "ingested"
	metaKindLearned  = "learned"
)

// NewIngestedMeta builds metadata for an ingestion-derived chunk.
func NewIngestedMeta(sourceName string, chunkIndex int, contentHash string) ChunkMeta {
	return ChunkMeta{
		Kind:        metaKindIngested,
		SourceName:  sourceName,
		ChunkIndex:  chunkIndex,
		ContentHash: contentHash,
	}
}

// NewLearnedMeta builds metadata for a conversation-learned chunk.
func NewLearnedMeta(conversationID string, outcome Outcome, chunkType, topic string, learnedAt time.Time) ChunkMeta {
	return ChunkMeta{
		Kind:           metaKindLearned,
		SourceName:     "conversation " + conversationID,
		Topic:          topic,
		ChunkType:      chunkType,
		ConversationID: conversationID,
		Outcome:        outcome,
		LearnedAt:      learnedAt,
	}
}

// Validate checks the variant-specific required fields.
func (m ChunkMeta) Validate() error {
	switch m.Kind {
	case metaKindIngested:
		if m.SourceName == "" {
			return ErrMetaSourceName
		}
	case metaKindLearned:
		if m.ConversationID == "" {
			return ErrMetaConversation
		}
		if m.ChunkType == "" {
			return ErrMetaChunkType
		}
	default:
		return ErrMetaKind
	}
	return nil
}

// IsLearned reports whether the metadata describes a learned chunk.
func (m ChunkMeta) IsLearned() bool {
	return m.Kind == metaKindLearned
}

// EncodeMeta serializes metadata for the store's JSON metadata bag.
func EncodeMeta(m ChunkMeta) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMeta deserializes a metadata bag. Unknown or absent kinds decode to
// a zero-kind meta rather than failing, since rows written by earlier schema
// revisions carry ad hoc keys.
func DecodeMeta(data []byte) (ChunkMeta, error) {
	var m ChunkMeta
	if len(data) == 0 {
		return m, nil
	}
	err := json.Unmarshal(data, &m)
	return m, err
}
