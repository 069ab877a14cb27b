package domain

import "fmt"

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that computes embeddings.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI API or a compatible server.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies the vector store implementation.
type VectorBackend string

// Available vector store backends.
const (
	// VectorBackendQdrant is a Qdrant server reached over REST.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendSQLite is an embedded single-file store.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendMemory keeps points in process memory only.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendQdrant, VectorBackendSQLite, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider EmbeddingProvider
	Model    string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is required for OpenAI.
	APIKey string

	// Dimensions overrides the known dimension of Model.
	Dimensions int

	// RequestsPerSecond throttles outbound embedding calls. Zero disables.
	RequestsPerSecond float64

	// Cache enables the on-disk embedding cache.
	Cache bool
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	Backend    VectorBackend
	URL        string
	APIKey     string
	Collection string

	// TimeoutSeconds bounds each store request.
	TimeoutSeconds int

	// Path is the sqlite database directory.
	Path string
}

// ChunkingSettings configures the word-window chunker.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// ExtractSettings configures text extraction.
type ExtractSettings struct {
	// OCR enables the image OCR fallback for pages without a text layer.
	OCR bool

	// OCRLanguage is the tesseract language code.
	OCRLanguage string
}

// Settings holds all process-wide configuration. It is resolved once at
// startup and never changes afterwards.
type Settings struct {
	Embedding   EmbeddingSettings
	VectorStore VectorStoreSettings
	Chunking    ChunkingSettings
	Extract     ExtractSettings

	// DataDir holds the sqlite database and embedding cache.
	DataDir string
}

// Default values.
const (
	DefaultCollection      = "medical_records"
	DefaultChunkSize       = 900
	DefaultChunkOverlap    = 150
	DefaultOCRLanguage     = "eng"
	DefaultStoreTimeoutSec = 15
	DefaultQdrantURL       = "http://localhost:6333"
)

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Embedding: EmbeddingSettings{
			Provider: EmbeddingProviderOllama,
			Model:    DefaultEmbeddingModels()[EmbeddingProviderOllama],
		},
		VectorStore: VectorStoreSettings{
			Backend:        VectorBackendQdrant,
			URL:            DefaultQdrantURL,
			Collection:     DefaultCollection,
			TimeoutSeconds: DefaultStoreTimeoutSec,
		},
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Extract: ExtractSettings{
			OCR:         true,
			OCRLanguage: DefaultOCRLanguage,
		},
	}
}

// Validate checks the settings for configuration errors.
func (s Settings) Validate() error {
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", ErrUnsupportedType, s.Embedding.Provider)
	}
	if s.Embedding.Provider.RequiresAPIKey() && s.Embedding.APIKey == "" {
		return fmt.Errorf("%w: embedding provider %s requires an API key", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding model is required", ErrInvalidInput)
	}
	if s.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding dimensions must not be negative", ErrInvalidInput)
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: vector store backend %q", ErrUnsupportedType, s.VectorStore.Backend)
	}
	if s.VectorStore.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if s.VectorStore.Backend == VectorBackendQdrant && s.VectorStore.URL == "" {
		return fmt.Errorf("%w: qdrant url is required", ErrInvalidInput)
	}
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if s.Chunking.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative", ErrInvalidInput)
	}
	return nil
}

// EmbeddingDimension returns the vector size for the configured model.
// An explicit Dimensions setting wins; unknown models return 0.
func (e EmbeddingSettings) EmbeddingDimension() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		// all-minilm is the Ollama build of sentence-transformers/all-MiniLM-L6-v2.
		EmbeddingProviderOllama: "all-minilm",
		EmbeddingProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
