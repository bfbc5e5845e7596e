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

import "errors"

// Domain validation errors
var (
	// ErrEmptyScope indicates a scope without a client identifier was used
	// on a read path.
	ErrEmptyScope = errors.New("scope requires a client id")

	// ErrScopeSeparator indicates a scope identifier containing the ':'
	// key separator. Such an identifier would fall inside another
	// tenant's key prefix.
	ErrScopeSeparator = errors.New("scope identifiers must not contain ':'")

	// ErrDocumentIDSeparator indicates a document identifier containing
	// the ':' key separator.
	ErrDocumentIDSeparator = errors.New("document id must not contain ':'")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates the content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyChunkID indicates the chunk identifier is empty.
	ErrEmptyChunkID = errors.New("chunk id cannot be empty")

	// ErrEmptyDocumentID indicates the document identifier is empty.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrInvalidSpeaker indicates an invalid Speaker value.
	ErrInvalidSpeaker = errors.New("invalid speaker")

	// ErrMetaKind indicates chunk metadata without a recognized kind.
	ErrMetaKind = errors.New("chunk metadata kind must be ingested or learned")

	// ErrMetaSourceName indicates ingested metadata without a source name.
	ErrMetaSourceName = errors.New("ingested metadata requires a source name")

	// ErrMetaConversation indicates learned metadata without a conversation id.
	ErrMetaConversation = errors.New("learned metadata requires a conversation id")

	// ErrMetaChunkType indicates learned metadata without a chunk type.
	ErrMetaChunkType = errors.New("learned metadata requires a chunk type")
)
