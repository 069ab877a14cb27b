package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

func point(docID string, idx int, patient string, vec ...float32) domain.Point {
	return domain.Point{
		ID:     domain.PointID(docID, idx),
		Vector: vec,
		Payload: map[string]any{
			domain.PayloadDocumentID: docID,
			domain.PayloadChunkIndex: idx,
			domain.PayloadPatientID:  patient,
			domain.PayloadText:       "chunk",
		},
	}
}

func newStore(t *testing.T) *VectorStore {
	t.Helper()
	s := NewVectorStore("medical_records", 2)
	require.NoError(t, s.EnsureCollection(context.Background()))
	return s
}

func TestVectorStore_SearchRanksByCosine(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.Point{
		point("a", 0, "p1", 1, 0),
		point("a", 1, "p1", 0.7, 0.7),
		point("b", 0, "p2", 0, 1),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a-0", results[0].PointID)
	assert.Equal(t, "a-1", results[1].PointID)
	assert.Equal(t, "b-0", results[2].PointID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestVectorStore_FilterBeforeLimit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.Point{
		point("a", 0, "p1", 1, 0),
		point("a", 1, "p1", 0.9, 0.1),
		point("b", 0, "p2", 0, 1),
	}))

	// The only p2 point is the least similar, yet limit 1 must still find it.
	results, err := s.Search(ctx, []float32{1, 0}, 1, domain.PatientFilter("p2"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b-0", results[0].PointID)
}

func TestVectorStore_UpsertOverwrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.Point{point("a", 0, "p1", 1, 0)}))

	replacement := point("a", 0, "p9", 0, 1)
	delete(replacement.Payload, domain.PayloadText)
	require.NoError(t, s.Upsert(ctx, []domain.Point{replacement}))

	results, err := s.Search(ctx, []float32{0, 1}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p9", results[0].Payload[domain.PayloadPatientID])
	assert.NotContains(t, results[0].Payload, domain.PayloadText, "payload is replaced, not merged")
}

func TestVectorStore_UpsertRejectsWholeBatch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Point{point("a", 0, "p1", 1, 0), point("a", 1, "p1", 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrSchema)

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.PointCount)
}

func TestVectorStore_DeleteAndPrune(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.Point{
		point("a", 0, "p1", 1, 0),
		point("a", 1, "p1", 1, 0),
		point("a", 2, "p1", 1, 0),
		point("b", 0, "p1", 1, 0),
	}))

	require.NoError(t, s.PruneDocument(ctx, "a", 1))
	info, _ := s.Info(ctx)
	assert.Equal(t, 2, info.PointCount)

	require.NoError(t, s.DeleteDocument(ctx, "a"))
	results, err := s.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b-0", results[0].PointID)
}

func TestVectorStore_Info(t *testing.T) {
	s := NewVectorStore("medical_records", 384)
	_, err := s.Info(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.EnsureCollection(context.Background()))
	info, err := s.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionInfo{Name: "medical_records", Dimension: 384, Distance: domain.DistanceCosine}, info)
}

func TestVectorStore_QueryDimensionMismatch(t *testing.T) {
	s := newStore(t)
	_, err := s.Search(context.Background(), []float32{1, 0, 0}, 5, nil)
	assert.ErrorIs(t, err, domain.ErrSchema)
}
