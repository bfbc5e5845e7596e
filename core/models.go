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


package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Scope is the (client, folder) pair that isolates one tenant's knowledge
// from another's. ClientID is the tenant-facing identifier; FolderID is a
// sub-scope within a client, such as a project or knowledge category.
// Every store read path requires at least a ClientID.
type Scope struct {
	ClientID string
	FolderID string
}

// NewScope creates a fully qualified scope.
func NewScope(clientID, folderID string) Scope {
	return Scope{ClientID: clientID, FolderID: folderID}
}

// ClientScope creates a scope covering all folders of a client.
func ClientScope(clientID string) Scope {
	return Scope{ClientID: clientID}
}

// Validate checks that the scope can be used on a read or write path.
// An empty ClientID would widen a search to every tenant, and a ':' in
// either identifier would place the scope's keys inside another tenant's
// key prefix, so both are rejected.
func (s Scope) Validate() error {
	if s.ClientID == "" {
		return ErrEmptyScope
	}
	if strings.Contains(s.ClientID, ":") || strings.Contains(s.FolderID, ":") {
		return ErrScopeSeparator
	}
	return nil
}

func (s Scope) String() string {
	if s.FolderID == "" {
		return s.ClientID
	}
	return s.ClientID + "/" + s.FolderID
}

// SourceType tags how a chunk entered the store.
type SourceType string

const (
	// SourceDocument marks chunks produced by ordinary document ingestion.
	SourceDocument SourceType = "document"
	// SourceConversationLearning marks chunks mined from closed conversations.
	SourceConversationLearning SourceType = "conversation_learning"
	// SourceWinningScript marks closing phrases from converted conversations.
	SourceWinningScript SourceType = "winning_script"
)

// Document is a source unit of knowledge: an uploaded file, a crawled page,
// a manual context injection, or a reconstructed conversation.
type Document struct {
	ID         string
	TenantID   int64
	Scope      Scope
	SourceName string
	SourceType string // "text", "json", "url", "pdf"
	Content    string
	Metadata   map[string]string
	Embedding  []float32 // optional whole-document embedding
	Processed  bool      // true once the embedding is present
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ContentHash returns a stable fingerprint of the document content, used to
// detect staleness on refresh.
func (d *Document) ContentHash() string {
	return HashContent(d.Content)
}

// Chunk is a retrievable unit: a contiguous slice of a document's content or
// a synthesized learned snippet, together with its embedding and scope.
type Chunk struct {
	ID                 string
	Scope              Scope
	DocumentID         string
	Content            string
	Embedding          []float32
	Meta               ChunkMeta
	SourceType         SourceType
	ConversionWeight   float64
	OutcomeCorrelation float64
}

// ChunkID builds the deterministic identifier for an ingestion-derived chunk.
// Format: client:folder:document:ordinal. Re-ingesting the same document
// produces the same identifiers, which makes upserts idempotent.
func ChunkID(scope Scope, documentID string, ordinal int) string {
	return fmt.Sprintf("%s:%s:%s:%d", scope.ClientID, scope.FolderID, documentID, ordinal)
}

// LearnedChunkID builds the identifier for a learned chunk. The timestamp and
// sequence suffix prevent accidental overwrite across extraction runs.
func LearnedChunkID(conversationID string, t time.Time, seq int) string {
	return fmt.Sprintf("learn_%s_%d_%d", conversationID, t.UnixMilli(), seq)
}

// HashContent returns a hex-encoded BLAKE2b fingerprint of text.
func HashContent(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Speaker identifies the author of a conversation message.
type Speaker int

const (
	// SpeakerLead is the human lead on the other end of the conversation.
	SpeakerLead Speaker = iota + 1
	// SpeakerAssistant is the AI sales assistant.
	SpeakerAssistant
	// SpeakerSystem is platform-generated traffic (notifications, handoffs).
	SpeakerSystem
)

// Message is a single message within a conversation.
type Message struct {
	Speaker   Speaker
	Content   string
	Timestamp time.Time
}

// Conversation is a closed conversation eligible for learning.
type Conversation struct {
	ID       string
	Scope    Scope
	Outcome  Outcome
	Messages []Message
}

// Outcome classifies how a conversation ended. It is derived at extraction
// time, not stored.
type Outcome string

const (
	OutcomeBookingConfirmed Outcome = "booking_confirmed"
	OutcomeQualified        Outcome = "qualified"
	OutcomeDropped          Outcome = "dropped"
	OutcomeUnknown          Outcome = "unknown"
)

// ConversionWeight maps an outcome to the multiplier applied to chunks
// learned from it.
func (o Outcome) ConversionWeight() float64 {
	switch o {
	case OutcomeBookingConfirmed:
		return 3.0
	case OutcomeQualified:
		return 1.5
	case OutcomeDropped:
		return 0.5
	default:
		return 1.0
	}
}

// Correlation maps an outcome to the fixed outcome-correlation score stored
// on learned chunks.
func (o Outcome) Correlation() float64 {
	switch o {
	case OutcomeBookingConfirmed:
		return 0.8
	case OutcomeQualified:
		return 0.5
	default:
		return 0.2
	}
}

// Match is a chunk returned by a similarity search together with its score.
type Match struct {
	Chunk      *Chunk
	Similarity float64
}

// DeletionReport records the independent outcomes of a cascade delete.
// The chunk step and the document step succeed or fail on their own; one
// failing does not abort the other.
type DeletionReport struct {
	DocumentID    string
	ChunksDeleted int
	ChunkErr      error
	DocumentErr   error
}

// OK reports whether both steps completed.
func (r DeletionReport) OK() bool {
	return r.ChunkErr == nil && r.DocumentErr == nil
}
