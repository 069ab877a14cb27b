package driven

import "context"

// Normaliser extracts plain text from one document format.
// Each normaliser handles specific MIME types (e.g., PDF, plain text).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise returns the text content of data, trimmed of surrounding
	// whitespace. Unparseable input fails with domain.ErrExtraction.
	Normalise(ctx context.Context, data []byte) (string, error)
}
