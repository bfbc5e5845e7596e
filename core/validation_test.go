package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateChunk(t *testing.T) {
	meta := NewIngestedMeta("Market Report Q3", 0, HashContent("body"))

	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid ingested chunk",
			chunk: &Chunk{
				ID:         "demo:campaign_docs:doc-1:0",
				Scope:      NewScope("demo", "campaign_docs"),
				DocumentID: "doc-1",
				Content:    "body",
				Meta:       meta,
			},
			wantErr: nil,
		},
		{
			name: "valid learned chunk without document",
			chunk: &Chunk{
				ID:      "learn_lead-1_1700000000000_0",
				Scope:   ClientScope("demo"),
				Content: `Q: "how much" A: "from AED 1.2M"`,
				Meta:    NewLearnedMeta("lead-1", OutcomeQualified, "qa_pair", "pricing", time.Now()),
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name: "missing id",
			chunk: &Chunk{
				Scope:   ClientScope("demo"),
				Content: "body",
				Meta:    meta,
			},
			wantErr: ErrEmptyChunkID,
		},
		{
			name: "missing scope",
			chunk: &Chunk{
				ID:      "x",
				Content: "body",
				Meta:    meta,
			},
			wantErr: ErrEmptyScope,
		},
		{
			name: "missing content",
			chunk: &Chunk{
				ID:    "x",
				Scope: ClientScope("demo"),
				Meta:  meta,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "document id with key separator",
			chunk: &Chunk{
				ID:         "demo:campaign_docs:doc:1:0",
				Scope:      NewScope("demo", "campaign_docs"),
				DocumentID: "doc:1",
				Content:    "body",
				Meta:       meta,
			},
			wantErr: ErrDocumentIDSeparator,
		},
		{
			name: "learned meta without conversation id",
			chunk: &Chunk{
				ID:      "x",
				Scope:   ClientScope("demo"),
				Content: "body",
				Meta:    ChunkMeta{Kind: "learned", ChunkType: "qa_pair"},
			},
			wantErr: ErrMetaConversation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunkMeta_RoundTrip(t *testing.T) {
	learnedAt := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	in := NewLearnedMeta("lead-7", OutcomeBookingConfirmed, "closing_phrase", "booking", learnedAt)

	data, err := EncodeMeta(in)
	if err != nil {
		t.Fatalf("EncodeMeta() error: %v", err)
	}

	out, err := DecodeMeta(data)
	if err != nil {
		t.Fatalf("DecodeMeta() error: %v", err)
	}

	if out.ConversationID != "lead-7" || out.Outcome != OutcomeBookingConfirmed ||
		out.ChunkType != "closing_phrase" || !out.LearnedAt.Equal(learnedAt) {
		t.Errorf("DecodeMeta() = %+v, want original fields preserved", out)
	}
	if !out.IsLearned() {
		t.Errorf("IsLearned() = false for learned meta")
	}
}

func TestValidateSpeaker(t *testing.T) {
	for _, s := range []Speaker{SpeakerLead, SpeakerAssistant, SpeakerSystem} {
		if err := ValidateSpeaker(s); err != nil {
			t.Errorf("ValidateSpeaker(%d) unexpected error: %v", s, err)
		}
	}
	if err := ValidateSpeaker(Speaker(0)); !errors.Is(err, ErrInvalidSpeaker) {
		t.Errorf("ValidateSpeaker(0) error = %v, want ErrInvalidSpeaker", err)
	}
}
