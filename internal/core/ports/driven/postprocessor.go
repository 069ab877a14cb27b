package driven

import (
	"context"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// Chunker splits extracted text into ordered, overlapping word-windows.
type Chunker interface {
	// Name returns the processor name for logging.
	Name() string

	// Process returns chunks in source order with 0-based indexes.
	// Whitespace-only text yields no chunks.
	Process(ctx context.Context, text string) ([]domain.Chunk, error)
}
