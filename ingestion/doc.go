// Package ingestion turns raw sources into embedded knowledge chunks.
//
// A Pipeline extracts plain text from a source (inline text, dashboard JSON
// sections, fetched URLs, or OCR-backed PDFs), stores the document, splits
// it into overlapping windows, embeds each window, and upserts the chunks
// under the document's scope. Chunk identifiers are deterministic, so
// re-ingesting a document replaces its chunks instead of duplicating them.
package ingestion
