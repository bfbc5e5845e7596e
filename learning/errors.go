package learning

import "errors"

var (
	// ErrChunkStoreRequired is returned when a chunk store is not provided.
	ErrChunkStoreRequired = errors.New("chunk store required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrSourceRequired is returned when batch learning is invoked without
	// a conversation source.
	ErrSourceRequired = errors.New("conversation source required")
)
