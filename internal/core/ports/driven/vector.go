package driven

import (
	"context"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// VectorStore owns the lifecycle of one named collection and exposes
// upsert and filtered nearest-neighbour search over its points.
//
// Connectivity failures wrap domain.ErrStoreUnavailable. Dimension or
// metric mismatches wrap domain.ErrSchema.
type VectorStore interface {
	// EnsureCollection creates the collection with the configured dimension
	// and cosine distance if it does not exist. Idempotent; once it has
	// succeeded further calls return immediately.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or fully replaces points by identity. A batch containing
	// any vector of the wrong length is rejected in full.
	Upsert(ctx context.Context, points []domain.Point) error

	// Search returns up to limit points ordered by descending cosine
	// similarity. A non-nil filter is applied inside the index before ranking.
	Search(ctx context.Context, vector []float32, limit int, filter *domain.Filter) ([]domain.SearchResult, error)

	// DeleteDocument removes every point of a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// PruneDocument removes the document's points with chunkIndex >= keep.
	PruneDocument(ctx context.Context, documentID string, keep int) error

	// Info describes the collection.
	Info(ctx context.Context) (domain.CollectionInfo, error)

	// Close releases resources.
	Close() error
}
