package cli

import (
	"errors"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// Process exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitInput     = 2
	exitStore     = 3
	exitEmbedding = 4
	exitSchema    = 5
)

// exitCode maps the error taxonomy to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrSchema):
		return exitSchema
	case errors.Is(err, domain.ErrStoreUnavailable):
		return exitStore
	case errors.Is(err, domain.ErrEmbedding):
		return exitEmbedding
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrExtraction),
		errors.Is(err, domain.ErrNoContent),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrNotFound):
		return exitInput
	default:
		return exitFailure
	}
}

// errorHint suggests the next step for an error class.
func errorHint(err error) string {
	switch {
	case errors.Is(err, domain.ErrSchema):
		return "The collection was created with another embedding model. " +
			"Use a new vector_store.collection or the original model."
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "The vector store could not be reached. It is safe to retry once it is back."
	case errors.Is(err, domain.ErrEmbedding):
		return "The embedding model could not be invoked. Check 'medindex config show'."
	case errors.Is(err, domain.ErrToolNotFound):
		return "Install poppler-utils and tesseract, or disable OCR with 'medindex config set extract.ocr false'."
	case errors.Is(err, domain.ErrNoContent):
		return "The document contains no extractable text. Scanned files need OCR enabled."
	default:
		return ""
	}
}
