package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedProvider indicates an unknown AI provider or vector backend.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrNotConfigured indicates a required setting is missing.
	ErrNotConfigured = errors.New("not configured")

	// ErrEmbeddingUnavailable indicates the embedding provider could not be
	// created or reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM provider could not be created or reached.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Ingestion Errors.

	// ErrEmptyDocument indicates the chunker produced no non-empty chunks.
	// Callers treat this as an ingestion failure, never a partial success.
	ErrEmptyDocument = errors.New("document produced no chunks")

	// ErrEmbedding indicates the embedding gateway failed for at least one
	// chunk of a batch, or returned a vector of the wrong dimension.
	// The whole batch is rejected.
	ErrEmbedding = errors.New("embedding failed")

	// ErrNoFileID indicates no file was named and none has been uploaded.
	ErrNoFileID = errors.New("no file id given and no file uploaded")

	// ErrPageOutOfRange indicates a page number beyond the document.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrForbiddenPath indicates a requested path escapes its allowed directory.
	ErrForbiddenPath = errors.New("forbidden path")

	// Retrieval Errors.

	// ErrIndexNotFound indicates a search was attempted before any ingestion
	// created the vector index.
	ErrIndexNotFound = errors.New("vector index not found")

	// ErrGrader indicates the fallback relevance check failed.
	// It is logged and treated as acceptance, never surfaced.
	ErrGrader = errors.New("relevance grader failed")

	// Generation Errors.

	// ErrGenerationStream indicates the streaming call failed and the
	// non-streaming fallback was used.
	ErrGenerationStream = errors.New("generation stream failed")

	// ErrGenerationFatal indicates both the streaming call and the
	// non-streaming fallback failed.
	ErrGenerationFatal = errors.New("generation failed")
)
