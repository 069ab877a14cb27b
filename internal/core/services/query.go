package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/core/ports/driving"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.SearchService = (*QueryService)(nil)

// QueryService answers similarity queries over the indexed chunks.
type QueryService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
}

// NewQueryService creates a new query service.
func NewQueryService(embedder driven.EmbeddingService, store driven.VectorStore) *QueryService {
	return &QueryService{embedder: embedder, store: store}
}

// Search embeds the query and returns up to TopK chunks by descending
// similarity. With a PatientID only that patient's chunks are considered.
func (s *QueryService) Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResult, error) {
	logger.Section("Search")

	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrInvalidInput)
	}

	limit := query.TopK
	switch {
	case limit <= 0:
		limit = domain.DefaultTopK
	case limit > domain.MaxTopK:
		limit = domain.MaxTopK
	}
	filter := domain.PatientFilter(strings.TrimSpace(query.PatientID))
	logger.Debug("Query: %q, limit: %d, patient filter: %t", text, limit, filter != nil)

	if err := s.store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, embeddingError(err)
	}

	results, err := s.store.Search(ctx, vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	logger.Debug("%d results", len(results))
	return results, nil
}

// Collection describes the vector collection.
func (s *QueryService) Collection(ctx context.Context) (domain.CollectionInfo, error) {
	return s.store.Info(ctx)
}

// EnsureCollection creates the collection when missing and describes it.
func (s *QueryService) EnsureCollection(ctx context.Context) (domain.CollectionInfo, error) {
	if err := s.store.EnsureCollection(ctx); err != nil {
		return domain.CollectionInfo{}, fmt.Errorf("ensure collection: %w", err)
	}
	return s.store.Info(ctx)
}
