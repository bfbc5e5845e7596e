// Package mock provides deterministic test doubles for the ai package
// interfaces. The default embedder maps identical text to identical
// unit-length vectors, so similarity-driven code can be tested without a
// live embedding service.
package mock
