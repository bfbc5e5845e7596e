package core

import (
	"errors"
	"testing"
	"time"
)

func TestHashContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same hash", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := HashContent(tt.content)
			h2 := HashContent(tt.content)
			if h1 != h2 {
				t.Errorf("HashContent() produced different hashes for same content: %s vs %s", h1, h2)
			}
		})
	}
}

func TestHashContent_Different(t *testing.T) {
	if HashContent("content1") == HashContent("content2") {
		t.Errorf("HashContent() produced same hash for different content")
	}
}

func TestChunkID(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		docID   string
		ordinal int
		want    string
	}{
		{
			name:    "fully qualified scope",
			scope:   NewScope("provident", "campaign_docs"),
			docID:   "doc-1",
			ordinal: 0,
			want:    "provident:campaign_docs:doc-1:0",
		},
		{
			name:    "client-only scope",
			scope:   ClientScope("demo"),
			docID:   "doc-2",
			ordinal: 3,
			want:    "demo::doc-2:3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkID(tt.scope, tt.docID, tt.ordinal)
			if got != tt.want {
				t.Errorf("ChunkID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLearnedChunkID_DistinctAcrossRuns(t *testing.T) {
	t1 := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	id1 := LearnedChunkID("lead-42", t1, 0)
	id2 := LearnedChunkID("lead-42", t2, 0)
	if id1 == id2 {
		t.Errorf("LearnedChunkID() produced same id for different runs: %s", id1)
	}

	id3 := LearnedChunkID("lead-42", t1, 1)
	if id1 == id3 {
		t.Errorf("LearnedChunkID() produced same id for different sequence numbers")
	}
}

func TestScope_Validate(t *testing.T) {
	if err := NewScope("demo", "campaign_docs").Validate(); err != nil {
		t.Errorf("valid scope rejected: %v", err)
	}
	if err := ClientScope("demo").Validate(); err != nil {
		t.Errorf("client-only scope rejected: %v", err)
	}
	if err := (Scope{FolderID: "campaign_docs"}).Validate(); err == nil {
		t.Errorf("scope without client id accepted")
	}
	if err := NewScope("a:evil", "f").Validate(); !errors.Is(err, ErrScopeSeparator) {
		t.Errorf("client id with key separator accepted: %v", err)
	}
	if err := NewScope("demo", "a:b").Validate(); !errors.Is(err, ErrScopeSeparator) {
		t.Errorf("folder id with key separator accepted: %v", err)
	}
}

func TestOutcome_ConversionWeight(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    float64
	}{
		{OutcomeBookingConfirmed, 3.0},
		{OutcomeQualified, 1.5},
		{OutcomeDropped, 0.5},
		{OutcomeUnknown, 1.0},
		{Outcome("garbage"), 1.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			if got := tt.outcome.ConversionWeight(); got != tt.want {
				t.Errorf("ConversionWeight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcome_Correlation(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    float64
	}{
		{OutcomeBookingConfirmed, 0.8},
		{OutcomeQualified, 0.5},
		{OutcomeDropped, 0.2},
		{OutcomeUnknown, 0.2},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			if got := tt.outcome.Correlation(); got != tt.want {
				t.Errorf("Correlation() = %v, want %v", got, tt.want)
			}
		})
	}
}
