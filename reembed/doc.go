// Package reembed regenerates the embeddings of stored chunks with a new or
// updated embedding model.
//
// Chunks are paged through per scope, re-embedded with retry and exponential
// backoff, normalized to unit length, and written back through the same
// keyed upserts ingestion uses. Progress is reported to a writer.
package reembed
