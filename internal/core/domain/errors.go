package domain

import "errors"

// Pipeline errors. Every failure surfaced by the indexing and query
// orchestrators wraps exactly one of these, so callers can decide whether
// to retry, re-upload or alert with errors.Is.
var (
	// ErrExtraction indicates the byte stream could not be parsed as any
	// attemptable format.
	ErrExtraction = errors.New("text extraction failed")

	// ErrNoContent indicates extraction succeeded but produced nothing to index.
	ErrNoContent = errors.New("no text content extracted")

	// ErrEmbedding indicates the embedding model could not be invoked.
	ErrEmbedding = errors.New("embedding failed")

	// ErrSchema indicates a dimension or collection configuration mismatch.
	// It is a configuration error and is never worth retrying.
	ErrSchema = errors.New("vector schema mismatch")

	// ErrStoreUnavailable indicates a connectivity or store-side failure.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// General errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrToolNotFound indicates a required external binary is not installed.
	ErrToolNotFound = errors.New("external tool not found")
)

// IsRetryable reports whether a caller-driven retry with backoff makes sense.
// Only store connectivity failures qualify; every other class is either a
// caller input problem or a configuration error.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
