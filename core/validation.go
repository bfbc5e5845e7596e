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
	"fmt"
	"strings"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Scope must carry a client id (a chunk is never orphaned from its scope)
//   - DocumentID, when set, must not contain the ':' key separator
//   - Content must not be empty
//   - Meta must satisfy its variant's rules
//
// NOT validated (populated later in the pipeline):
//   - Embedding (can be empty until the embedding client runs)
//   - an empty DocumentID (learned chunks reference the conversation instead)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkID)
	}

	if err := chunk.Scope.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	if strings.Contains(chunk.DocumentID, ":") {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrDocumentIDSeparator)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if err := chunk.Meta.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	return nil
}

// ValidateSpeaker validates that a Speaker has a valid value.
func ValidateSpeaker(speaker Speaker) error {
	if speaker != SpeakerLead && speaker != SpeakerAssistant && speaker != SpeakerSystem {
		return fmt.Errorf("%w: value %d", ErrInvalidSpeaker, speaker)
	}
	return nil
}
