package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/medindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/medindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/medindex/internal/adapters/driven/fetch"
	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/core/ports/driving"
	"github.com/custodia-labs/medindex/internal/core/services"
	"github.com/custodia-labs/medindex/internal/logger"
	"github.com/custodia-labs/medindex/internal/normalisers"
	"github.com/custodia-labs/medindex/internal/normalisers/docx"
	"github.com/custodia-labs/medindex/internal/normalisers/html"
	"github.com/custodia-labs/medindex/internal/normalisers/ocr"
	"github.com/custodia-labs/medindex/internal/normalisers/pdf"
	"github.com/custodia-labs/medindex/internal/normalisers/plaintext"
	"github.com/custodia-labs/medindex/internal/postprocessors/chunker"
	"github.com/custodia-labs/medindex/internal/ratelimit"
)

// fetchRequestsPerSecond throttles downloads of fileUrl records.
const fetchRequestsPerSecond = 5

// Services wired by bootstrap. Tests inject their own.
var (
	indexService    driving.IndexService
	searchService   driving.SearchService
	ingestService   driving.IngestService
	settingsService driving.SettingsService

	// embeddingService is kept for connectivity checks.
	embeddingService driven.EmbeddingService

	// shutdown releases what bootstrap opened. Nil when nothing was opened.
	shutdown func()
)

// loadSettingsService opens the config file once.
func loadSettingsService() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService = services.NewSettingsService(store, os.Getenv)
	return settingsService, nil
}

// requireServices builds the pipeline on first use: settings are resolved,
// every adapter is constructed once and the collection is ensured. Commands
// that run after a successful call share the same handles.
func requireServices(ctx context.Context) error {
	if indexService != nil && searchService != nil && ingestService != nil {
		return nil
	}

	svc, err := loadSettingsService()
	if err != nil {
		return err
	}
	settings, err := svc.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", svc.Path(), err)
	}
	if settings.DataDir == "" {
		settings.DataDir = filepath.Join(filepath.Dir(svc.Path()), "data")
	}

	logger.Section("Bootstrap")
	logger.Debug("embedding: %s %s (%d dims)", settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.EmbeddingDimension())
	logger.Debug("vector store: %s collection %s", settings.VectorStore.Backend, settings.VectorStore.Collection)

	adapters, err := ai.Init(settings)
	if err != nil {
		return err
	}

	if err := adapters.VectorStore.EnsureCollection(ctx); err != nil {
		adapters.Close()
		return err
	}

	indexer := services.NewIndexer(
		newExtractor(settings.Extract),
		chunker.New(chunker.WithChunkSize(settings.Chunking.Size), chunker.WithOverlap(settings.Chunking.Overlap)),
		adapters.EmbeddingService,
		adapters.VectorStore,
	)
	fetcher := fetch.NewClient(fetch.Config{
		Limiter: ratelimit.New(ratelimit.Config{RequestsPerSecond: fetchRequestsPerSecond}),
	})

	indexService = indexer
	searchService = services.NewQueryService(adapters.EmbeddingService, adapters.VectorStore)
	ingestService = services.NewIngestor(indexer, fetcher)
	embeddingService = adapters.EmbeddingService
	shutdown = adapters.Close
	return nil
}

// closeServices releases bootstrapped handles and forgets them.
func closeServices() {
	if shutdown == nil {
		return
	}
	shutdown()
	shutdown = nil
	indexService = nil
	searchService = nil
	ingestService = nil
	embeddingService = nil
	settingsService = nil
}

// newExtractor builds the text extractor. OCR is switched off with a
// warning when tesseract is missing.
func newExtractor(settings domain.ExtractSettings) driven.TextExtractor {
	var engine driven.OCREngine
	if settings.OCR {
		tesseract := ocr.New(settings.OCRLanguage)
		if err := tesseract.CheckAvailable(); err != nil {
			logger.Warn("OCR disabled: %v", err)
		} else {
			engine = tesseract
		}
	}

	pdfNormaliser := pdf.New(engine)
	if err := pdfNormaliser.CheckAvailable(); err != nil {
		logger.Debug("pdf extraction unavailable: %v", err)
	}

	return normalisers.NewRegistry(pdfNormaliser, docx.New(), html.New(), plaintext.New())
}
