package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/core/ports/driving"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// Ingestor feeds the indexer from URLs and connectors.
//
// It remembers which document each source URI was indexed as, so a watched
// file that is deleted, or edited without a recordId, can have its old
// points removed.
type Ingestor struct {
	indexer driving.IndexService
	fetcher driven.Fetcher

	mu    sync.Mutex
	known map[string]string // URI -> documentID
}

// NewIngestor creates a new ingestor. fetcher may be nil, in which case
// IndexURL is unavailable.
func NewIngestor(indexer driving.IndexService, fetcher driven.Fetcher) *Ingestor {
	return &Ingestor{
		indexer: indexer,
		fetcher: fetcher,
		known:   make(map[string]string),
	}
}

// IndexURL downloads url and indexes the bytes with meta.
func (g *Ingestor) IndexURL(ctx context.Context, url string, meta domain.RecordMetadata) (*domain.IndexResult, error) {
	if g.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", domain.ErrInvalidInput)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	file, err := g.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if meta.FileURL == "" {
		meta.FileURL = url
	}

	logger.Debug("fetched %s: %d bytes, %s", url, len(file.Content), file.ContentType)
	return g.indexer.Index(ctx, domain.IndexRequest{
		Content:     file.Content,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Metadata:    meta,
	})
}

// IngestAll indexes every document of a full scan. Per-file failures are
// reported through progress and counted; only a failure of the scan itself
// is returned.
func (g *Ingestor) IngestAll(
	ctx context.Context, conn driven.Connector, progress func(domain.IngestOutcome),
) (*domain.IngestSummary, error) {
	logger.Section("Ingest")
	logger.Info("Scanning %s source", conn.Type())

	summary := &domain.IngestSummary{}
	report := func(o domain.IngestOutcome) {
		summary.Add(o)
		if progress != nil {
			progress(o)
		}
	}

	docs, errs := conn.FullSync(ctx)
	var scanErr error
	for docs != nil || errs != nil {
		select {
		case doc, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			report(g.ingest(ctx, doc, domain.ChangeCreated))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			var se *driven.SourceError
			if errors.As(err, &se) {
				report(domain.IngestOutcome{URI: se.URI, Change: domain.ChangeCreated, Err: se.Err})
				continue
			}
			scanErr = err
		}
	}

	logger.Info("Ingest complete: %d indexed, %d failed, %d chunks", summary.Indexed, summary.Failed, summary.Chunks)
	if scanErr != nil {
		return summary, fmt.Errorf("scan: %w", scanErr)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// Follow applies connector changes until ctx is cancelled. Cancellation is
// a normal stop and returns nil.
func (g *Ingestor) Follow(ctx context.Context, conn driven.Connector, progress func(domain.IngestOutcome)) error {
	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	logger.Info("Watching %s source", conn.Type())

	for change := range changes {
		var outcome domain.IngestOutcome
		if change.Type == domain.ChangeDeleted {
			outcome = g.remove(ctx, change.Document)
		} else {
			outcome = g.ingest(ctx, change.Document, change.Type)
		}
		if !outcome.OK() {
			logger.Warn("%s %s: %v", change.Type, outcome.URI, outcome.Err)
		}
		if progress != nil {
			progress(outcome)
		}
	}
	return nil
}

func (g *Ingestor) ingest(ctx context.Context, doc domain.RawDocument, change domain.ChangeType) domain.IngestOutcome {
	outcome := domain.IngestOutcome{URI: doc.URI, Change: change}

	res, err := g.indexer.Index(ctx, domain.IndexRequest{
		Content:     doc.Content,
		Filename:    filepath.Base(doc.URI),
		ContentType: doc.MIMEType,
		Metadata:    doc.Metadata,
	})
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Result = res

	// Content hashed IDs change with the content; drop the old version.
	if prev := g.remember(doc.URI, res.DocumentID); prev != "" && prev != res.DocumentID && !g.referenced(prev) {
		if err := g.indexer.Delete(ctx, prev); err != nil {
			logger.Warn("remove previous version %s of %s: %v", prev, doc.URI, err)
		}
	}
	return outcome
}

// remove deletes the document a vanished URI was indexed as. Without a
// record of it and without a recordId there is nothing to address.
func (g *Ingestor) remove(ctx context.Context, doc domain.RawDocument) domain.IngestOutcome {
	outcome := domain.IngestOutcome{URI: doc.URI, Change: domain.ChangeDeleted}

	docID := g.forget(doc.URI)
	if docID == "" {
		docID = doc.Metadata.Normalized().RecordID
	}
	if docID == "" {
		logger.Debug("%s was not indexed by this process and has no recordId; skipping delete", doc.URI)
		return outcome
	}
	if g.referenced(docID) {
		logger.Debug("%s still backs another file; keeping it", docID)
		return outcome
	}

	if err := g.indexer.Delete(ctx, docID); err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Result = &domain.IndexResult{DocumentID: docID}
	return outcome
}

// remember records uri -> docID and returns the previous mapping.
func (g *Ingestor) remember(uri, docID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.known[uri]
	g.known[uri] = docID
	return prev
}

func (g *Ingestor) forget(uri string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	docID := g.known[uri]
	delete(g.known, uri)
	return docID
}

// referenced reports whether any tracked URI still maps to docID.
func (g *Ingestor) referenced(docID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range g.known {
		if id == docID {
			return true
		}
	}
	return false
}
