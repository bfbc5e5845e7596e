package ingestion

import "errors"

var (
	// ErrExtraction indicates that content could not be extracted from a
	// source. The source stays untouched in the store.
	ErrExtraction = errors.New("content extraction failed")

	// ErrUnsupportedSource is returned for a source type no extractor
	// handles.
	ErrUnsupportedSource = errors.New("unsupported source type")

	// ErrOCRRequired is returned when a PDF source arrives and no OCR
	// service was configured.
	ErrOCRRequired = errors.New("OCR service required for pdf sources")

	// ErrChunkStoreRequired is returned when a chunk store is not provided.
	ErrChunkStoreRequired = errors.New("chunk store required")

	// ErrDocumentStoreRequired is returned when a document store is not provided.
	ErrDocumentStoreRequired = errors.New("document store required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")
)
