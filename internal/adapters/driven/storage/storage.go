// Package storage holds the helpers shared by the vector store adapters.
// The adapters themselves live in the qdrant, sqlite and memory subpackages.
package storage

import (
	"fmt"
	"sort"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// ValidatePoints checks every point before any of them is written, so a
// batch with one bad vector is rejected in full.
func ValidatePoints(points []domain.Point, dimension int) error {
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("%w: point without id", domain.ErrInvalidInput)
		}
		if len(p.Vector) != dimension {
			return fmt.Errorf("%w: point %s has %d dimensions, collection has %d",
				domain.ErrSchema, p.ID, len(p.Vector), dimension)
		}
	}
	return nil
}

// Similarity returns the cosine similarity of a and b. A zero vector is
// similar to nothing.
func Similarity(a, b []float32) float64 {
	if search.Float32s(a).Magnitude() == 0 || search.Float32s(b).Magnitude() == 0 {
		return 0
	}
	return float64(1 - search.Float32s(a).CosineDistance(b))
}

// Rank orders results by descending score, breaking ties by point id so the
// order is deterministic for a fixed index state, and keeps at most limit.
func Rank(results []domain.SearchResult, limit int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// ChunkIndex reads the chunkIndex payload field of a stored point.
func ChunkIndex(payload map[string]any) int {
	return domain.SearchResult{Payload: payload}.ChunkIndex()
}

// CopyPayload returns a shallow copy of payload.
func CopyPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
