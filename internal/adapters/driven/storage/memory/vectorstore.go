package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/medindex/internal/adapters/driven/storage"
	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Search is an exact brute-force scan. Nothing survives the process.
type VectorStore struct {
	mu        sync.RWMutex
	name      string
	dimension int
	ensured   bool
	points    map[string]domain.Point
}

// NewVectorStore creates an empty store for a collection of the given dimension.
func NewVectorStore(name string, dimension int) *VectorStore {
	return &VectorStore{
		name:      name,
		dimension: dimension,
		points:    make(map[string]domain.Point),
	}
}

// EnsureCollection marks the collection as created.
func (s *VectorStore) EnsureCollection(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension <= 0 {
		return fmt.Errorf("%w: collection %s has no dimension", domain.ErrSchema, s.name)
	}
	s.ensured = true
	return nil
}

// Upsert stores copies of the points, replacing existing ids.
func (s *VectorStore) Upsert(_ context.Context, points []domain.Point) error {
	if err := storage.ValidatePoints(points, s.dimension); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		s.points[p.ID] = domain.Point{ID: p.ID, Vector: vec, Payload: storage.CopyPayload(p.Payload)}
	}
	return nil
}

// Search scans every point matching filter and ranks by cosine similarity.
func (s *VectorStore) Search(_ context.Context, vector []float32, limit int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d", domain.ErrSchema, len(vector), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.SearchResult, 0, len(s.points))
	for id, p := range s.points {
		if !filter.Matches(p.Payload) {
			continue
		}
		results = append(results, domain.SearchResult{
			PointID: id,
			Score:   storage.Similarity(vector, p.Vector),
			Payload: storage.CopyPayload(p.Payload),
		})
	}
	return storage.Rank(results, limit), nil
}

// DeleteDocument removes every point of a document.
func (s *VectorStore) DeleteDocument(_ context.Context, documentID string) error {
	return s.deleteWhere(documentID, 0)
}

// PruneDocument removes the document's points with chunkIndex >= keep.
func (s *VectorStore) PruneDocument(_ context.Context, documentID string, keep int) error {
	return s.deleteWhere(documentID, keep)
}

func (s *VectorStore) deleteWhere(documentID string, minIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if p.Payload[domain.PayloadDocumentID] == documentID && storage.ChunkIndex(p.Payload) >= minIndex {
			delete(s.points, id)
		}
	}
	return nil
}

// Info describes the collection.
func (s *VectorStore) Info(_ context.Context) (domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ensured {
		return domain.CollectionInfo{}, fmt.Errorf("collection %s: %w", s.name, domain.ErrNotFound)
	}
	return domain.CollectionInfo{
		Name:       s.name,
		Dimension:  s.dimension,
		Distance:   domain.DistanceCosine,
		PointCount: len(s.points),
	}, nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}
