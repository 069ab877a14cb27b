package driving

import (
	"context"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// IndexService ingests clinical documents into the vector index.
type IndexService interface {
	// Index extracts, chunks, embeds and upserts one document.
	// Re-indexing the same document ID overwrites its points.
	Index(ctx context.Context, req domain.IndexRequest) (*domain.IndexResult, error)

	// Delete removes every point of a document.
	Delete(ctx context.Context, documentID string) error
}
