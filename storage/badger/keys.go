package badger

import (
	"fmt"

	"github.com/aurosystems/ragkit/core"
)

// Key prefixes for different data types
const (
	chunkPrefix    = "chk"    // chk:<client>:<folder>:<chunkID> -> chunk JSON
	chunkDocPrefix = "chkdoc" // chkdoc:<documentID>:<chunkID> -> chunk key
	docPrefix      = "doc"    // doc:<documentID> -> document JSON
)

// makeChunkKey generates the primary key for a chunk. The scope is encoded
// as a key prefix so scoped similarity scans never touch another tenant's
// keys.
func makeChunkKey(scope core.Scope, chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s", chunkPrefix, scope.ClientID, scope.FolderID, chunkID))
}

// makeScopePrefix generates the iteration prefix for a scoped scan.
// An empty FolderID widens the scan to every folder of the client.
func makeScopePrefix(scope core.Scope) []byte {
	if scope.FolderID == "" {
		return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, scope.ClientID))
	}
	return []byte(fmt.Sprintf("%s:%s:%s:", chunkPrefix, scope.ClientID, scope.FolderID))
}

// makeChunkDocKey generates the document index key for a chunk. The value
// stored under it is the chunk's primary key.
func makeChunkDocKey(documentID, chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", chunkDocPrefix, documentID, chunkID))
}

// makeChunkDocPrefix generates the iteration prefix for a document's chunks.
func makeChunkDocPrefix(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkDocPrefix, documentID))
}

// makeDocKey generates the key for a document record.
func makeDocKey(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", docPrefix, documentID))
}
