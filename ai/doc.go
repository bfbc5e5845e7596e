// Package ai defines the embedding provider contracts used by the
// ingestion, learning, and search packages, together with the shared
// configuration and retry helpers the concrete providers build on.
//
// Concrete implementations live in subpackages: ai/openai speaks to any
// OpenAI-compatible embedding endpoint, ai/mock provides a deterministic
// in-memory embedder for tests.
package ai
