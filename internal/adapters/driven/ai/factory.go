// Package ai provides factory functions for the embedding and vector store
// adapters selected by settings.
package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/medindex/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/medindex/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/medindex/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/medindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medindex/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/medindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/logger"
	"github.com/custodia-labs/medindex/internal/ratelimit"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CacheFile is the embedding cache database inside the data directory.
const CacheFile = "embeddings.db"

// InitResult holds the adapters built from one Settings value.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	VectorStore      driven.VectorStore
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		if err := r.EmbeddingService.Close(); err != nil {
			logger.Warn("closing embedding service: %v", err)
		}
	}
	if r.VectorStore != nil {
		if err := r.VectorStore.Close(); err != nil {
			logger.Warn("closing vector store: %v", err)
		}
	}
}

// Init builds the embedding service and the vector store sized to its
// dimension. Nothing is contacted over the network.
func Init(settings domain.Settings) (*InitResult, error) {
	embedder, err := CreateEmbeddingService(settings.Embedding, settings.DataDir)
	if err != nil {
		return nil, err
	}

	store, err := CreateVectorStore(settings.VectorStore, settings.DataDir, embedder.Dimensions())
	if err != nil {
		embedder.Close()
		return nil, err
	}

	return &InitResult{EmbeddingService: embedder, VectorStore: store}, nil
}

// ValidateEmbeddingService pings svc, bounded by pingTimeout.
func ValidateEmbeddingService(ctx context.Context, svc driven.EmbeddingService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable (%w). Check 'medindex config show'",
			domain.ErrEmbedding, svc.ModelName(), err)
	}
	return nil
}

// CreateEmbeddingService creates the embedding service for the configured
// provider, throttled by a limiter and optionally fronted by the on-disk cache.
func CreateEmbeddingService(settings domain.EmbeddingSettings, dataDir string) (driven.EmbeddingService, error) {
	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond})

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.EmbeddingProviderOllama:
		svc, err = createOllamaEmbedding(settings, limiter)
	case domain.EmbeddingProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings, limiter)
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if !settings.Cache {
		return svc, nil
	}
	if dataDir == "" {
		svc.Close()
		return nil, fmt.Errorf("%w: embedding cache requires data_dir", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		svc.Close()
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	cached, err := cache.Open(filepath.Join(dataDir, CacheFile), svc)
	if err != nil {
		svc.Close()
		return nil, err
	}
	logger.Debug("embedding cache enabled at %s", filepath.Join(dataDir, CacheFile))
	return cached, nil
}

// CreateVectorStore creates the vector store for the configured backend.
// dimension is the embedding size the collection is created with.
func CreateVectorStore(settings domain.VectorStoreSettings, dataDir string, dimension int) (driven.VectorStore, error) {
	switch settings.Backend {
	case domain.VectorBackendQdrant:
		store, err := qdrant.NewStore(qdrant.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: settings.Collection,
			Dimension:  dimension,
			Timeout:    time.Duration(settings.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.VectorBackendSQLite:
		path := settings.Path
		if path == "" {
			path = dataDir
		}
		store, err := sqlite.NewVectorStore(path, settings.Collection, dimension)
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.VectorBackendMemory:
		logger.Warn("memory vector store selected; points are lost on exit")
		return memory.NewVectorStore(settings.Collection, dimension), nil

	default:
		return nil, fmt.Errorf("%w: vector store backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}

func createOllamaEmbedding(settings domain.EmbeddingSettings, limiter *ratelimit.Limiter) (driven.EmbeddingService, error) {
	svc, err := ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.EmbeddingDimension(),
		Limiter:    limiter,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createOpenAIEmbedding(settings domain.EmbeddingSettings, limiter *ratelimit.Limiter) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.EmbeddingDimension(),
		Limiter:    limiter,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
