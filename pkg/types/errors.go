package types

import "errors"

// Domain errors shared across the ingestion and retrieval pipeline
var (
	// ErrEmptyDocument indicates a document yielded no extractable text.
	// Fatal for that document only; a batch continues past it.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrRetrievalUnavailable indicates the vector index could not be
	// reached or errored. Callers degrade to an empty result set.
	ErrRetrievalUnavailable = errors.New("vector index unavailable")

	// ErrEmbeddingFailed indicates the embedding provider errored.
	// Propagated: the current query or ingestion cannot proceed without it.
	ErrEmbeddingFailed = errors.New("embedding provider failed")

	// ErrGenerationFailed indicates the answer provider errored. Converted
	// to a user-visible message rather than a structured failure.
	ErrGenerationFailed = errors.New("answer generation failed")

	// Validation errors
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")
	ErrInvalidChunkID = errors.New("chunk ID must be >= 0")
	ErrInvalidScore   = errors.New("score must be between 0 and 1")
)
