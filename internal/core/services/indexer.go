package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/core/ports/driving"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexService = (*Indexer)(nil)

// Indexer runs the ingest pipeline: extract, chunk, embed, upsert.
type Indexer struct {
	extractor driven.TextExtractor
	chunker   driven.Chunker
	embedder  driven.EmbeddingService
	store     driven.VectorStore

	now func() time.Time
}

// NewIndexer creates a new indexer.
func NewIndexer(
	extractor driven.TextExtractor,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
) *Indexer {
	return &Indexer{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		now:       time.Now,
	}
}

// Index ingests one document. The document ID is the caller's recordId or
// a hash of the bytes, so the same input always lands on the same points.
// After the upsert, points left over from a longer previous version of the
// document are removed; a failure there is logged and does not fail Index.
func (ix *Indexer) Index(ctx context.Context, req domain.IndexRequest) (*domain.IndexResult, error) {
	logger.Section("Index")

	req.Metadata = req.Metadata.Normalized()
	if err := req.Metadata.Validate(); err != nil {
		return nil, err
	}

	if err := ix.store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	text, err := ix.extractor.Extract(ctx, req.Content, req.Filename, req.ContentType)
	if err != nil {
		return nil, extractionError(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoContent, describe(req))
	}

	chunks, err := ix.chunker.Process(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoContent, describe(req))
	}

	docID := domain.DeriveDocumentID(req.Metadata.RecordID, req.Content)
	logger.Debug("document %s: %d words -> %d chunks", docID, len(strings.Fields(text)), len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, embeddingError(err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	points := ix.buildPoints(docID, req, chunks, vectors)
	if err := ix.store.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", docID, err)
	}
	// The new points are already visible, so a failed prune only leaves
	// stale tail chunks behind until the next index of this document.
	if err := ix.store.PruneDocument(ctx, docID, len(points)); err != nil {
		logger.Warn("prune %s: %v", docID, err)
	}

	logger.Info("Indexed %s (%d chunks)", docID, len(points))
	return &domain.IndexResult{DocumentID: docID, ChunkCount: len(points)}, nil
}

// buildPoints attaches the shared document payload to every chunk.
func (ix *Indexer) buildPoints(
	docID string, req domain.IndexRequest, chunks []domain.Chunk, vectors [][]float32,
) []domain.Point {
	base := req.Metadata.Payload()
	base[domain.PayloadDocumentID] = docID
	base[domain.PayloadIndexedAt] = ix.now().UTC().Format(time.RFC3339)
	if req.Filename != "" {
		base[domain.PayloadFilename] = req.Filename
	}
	if req.ContentType != "" {
		base[domain.PayloadContentType] = req.ContentType
	}

	points := make([]domain.Point, len(chunks))
	for i, c := range chunks {
		payload := make(map[string]any, len(base)+3)
		for k, v := range base {
			payload[k] = v
		}
		id := domain.PointID(docID, c.Index)
		payload[domain.PayloadChunkIndex] = c.Index
		payload[domain.PayloadText] = c.Text
		payload[domain.PayloadPointID] = id

		points[i] = domain.Point{ID: id, Vector: vectors[i], Payload: payload}
	}
	return points
}

// Delete removes every point of a document.
func (ix *Indexer) Delete(ctx context.Context, documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	if err := ix.store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := ix.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete %s: %w", documentID, err)
	}
	logger.Info("Deleted %s", documentID)
	return nil
}

// extractionError keeps context errors and already classified failures
// as they are and marks anything else as an extraction failure.
func extractionError(err error) error {
	if errors.Is(err, domain.ErrExtraction) || isContextErr(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrExtraction, err)
}

func embeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbedding) || errors.Is(err, domain.ErrSchema) || isContextErr(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func describe(req domain.IndexRequest) string {
	if req.Filename != "" {
		return req.Filename
	}
	return fmt.Sprintf("%d bytes", len(req.Content))
}
