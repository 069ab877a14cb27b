// Package plaintext decodes UTF-8 text records. It is the registry fallback
// for every MIME type no other normaliser claims.
package plaintext

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/x-markdown",
		"text/csv",
		"text/tab-separated-values",
		"text/rtf",
		"application/json",
		"application/xml",
		"text/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise decodes data as UTF-8 with any leading byte order mark removed.
// Bytes that are not valid UTF-8 yield empty text rather than an error, so
// an unrecognised binary upload surfaces as "nothing to index".
func (n *Normaliser) Normalise(_ context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		logger.Debug("plaintext: %d bytes are not valid UTF-8", len(data))
		return "", nil
	}
	return strings.TrimSpace(string(data)), nil
}
