package driven

import (
	"context"
	"fmt"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// Connector streams record files from a source.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Validate checks the source is reachable and readable.
	Validate(ctx context.Context) error

	// FullSync emits every matching document once.
	// Per-file failures arrive on the error channel as *SourceError and the
	// scan continues; any other error ends the scan.
	// Both channels are closed when the scan finishes.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch emits changes until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}

// SourceError is a failure to read one item of a source.
type SourceError struct {
	URI string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.URI, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
