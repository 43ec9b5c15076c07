package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable. Semantic scoring and semantic cache
	// lookup are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCacheConflict indicates a cache store write lost a race with a
	// concurrent writer. Writers of new entries retry a bounded number
	// of times; reuse-count updates may drop the write.
	ErrCacheConflict = errors.New("cache store write conflict")

	// ErrCacheCorrupt indicates a cache store file could not be parsed.
	// Callers treat the store as empty rather than failing.
	ErrCacheCorrupt = errors.New("cache store corrupt")
)
