package driving

import (
	"context"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// SearchService provides retrieval over indexed records.
type SearchService interface {
	// Search embeds the query and returns ranked chunks, optionally scoped
	// to one patient.
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResult, error)

	// Collection describes the underlying vector collection.
	Collection(ctx context.Context) (domain.CollectionInfo, error)

	// EnsureCollection creates the collection if it is missing and then
	// describes it. A dimension mismatch is domain.ErrSchema.
	EnsureCollection(ctx context.Context) (domain.CollectionInfo, error)
}
