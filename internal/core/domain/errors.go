package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown stage, provider or subject kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrStoreUnavailable indicates the corpus store cannot be reached.
	// It is fatal for the current run.
	ErrStoreUnavailable = errors.New("corpus store unavailable")

	// ErrModelUnavailable indicates an external model service is not configured or unreachable.
	ErrModelUnavailable = errors.New("model service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// The semantic leg of a query is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates no vector index has been built or loaded.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// Vector Index Errors.

	// ErrDimensionMismatch indicates a vector does not match the configured dimension.
	// It aborts an index build before any insertion.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyIndex indicates the vector index holds no vectors.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrCorruptSnapshot indicates a persisted index snapshot could not be decoded.
	ErrCorruptSnapshot = errors.New("corrupt index snapshot")

	// Model Output Errors.

	// ErrUnexpectedOutput indicates a model returned a response of an unexpected shape.
	// It is a per-item failure.
	ErrUnexpectedOutput = errors.New("unexpected model output")
)
