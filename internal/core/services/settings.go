package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/core/ports/driving"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyEmbedProvider   = "embedding.provider"
	KeyEmbedModel      = "embedding.model"
	KeyEmbedBaseURL    = "embedding.base_url"
	KeyEmbedAPIKey     = "embedding.api_key"
	KeyEmbedDims       = "embedding.dimensions"
	KeyEmbedRPS        = "embedding.requests_per_second"
	KeyEmbedCache      = "embedding.cache"
	KeyStoreBackend    = "vector_store.backend"
	KeyStoreURL        = "vector_store.url"
	KeyStoreAPIKey     = "vector_store.api_key"
	KeyStoreCollection = "vector_store.collection"
	KeyStoreTimeout    = "vector_store.timeout_seconds"
	KeyStorePath       = "vector_store.path"
	KeyChunkSize       = "chunking.size"
	KeyChunkOverlap    = "chunking.overlap"
	KeyOCR             = "extract.ocr"
	KeyOCRLanguage     = "extract.ocr_language"
	KeyDataDir         = "data_dir"
)

// Environment overrides, named as the records service deployment sets them.
const (
	EnvQdrantURL        = "QDRANT_URL"
	EnvQdrantAPIKey     = "QDRANT_API_KEY"
	EnvQdrantCollection = "QDRANT_COLLECTION"
	EnvEmbedModel       = "EMBED_MODEL_NAME"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvOllamaHost       = "OLLAMA_HOST"
)

// ValueKind is the type a config key is stored as.
type ValueKind int

// Value kinds.
const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// ConfigKey describes one recognised configuration key.
type ConfigKey struct {
	Name        string
	Kind        ValueKind
	Secret      bool
	Description string
}

// ConfigKeys returns every recognised key in sorted order.
func ConfigKeys() []ConfigKey {
	keys := []ConfigKey{
		{KeyEmbedProvider, KindString, false, "embedding provider (ollama, openai)"},
		{KeyEmbedModel, KindString, false, "embedding model name"},
		{KeyEmbedBaseURL, KindString, false, "embedding API endpoint"},
		{KeyEmbedAPIKey, KindString, true, "embedding API key"},
		{KeyEmbedDims, KindInt, false, "vector size for models not known to medindex"},
		{KeyEmbedRPS, KindFloat, false, "embedding requests per second (0 = unlimited)"},
		{KeyEmbedCache, KindBool, false, "cache embeddings on disk"},
		{KeyStoreBackend, KindString, false, "vector store (qdrant, sqlite, memory)"},
		{KeyStoreURL, KindString, false, "Qdrant URL"},
		{KeyStoreAPIKey, KindString, true, "Qdrant API key"},
		{KeyStoreCollection, KindString, false, "collection name"},
		{KeyStoreTimeout, KindInt, false, "vector store request timeout in seconds"},
		{KeyStorePath, KindString, false, "sqlite database directory"},
		{KeyChunkSize, KindInt, false, "chunk size in words"},
		{KeyChunkOverlap, KindInt, false, "chunk overlap in words"},
		{KeyOCR, KindBool, false, "OCR image-only PDF pages"},
		{KeyOCRLanguage, KindString, false, "tesseract language"},
		{KeyDataDir, KindString, false, "directory for local databases"},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys
}

// LookupConfigKey returns the description of a recognised key.
func LookupConfigKey(name string) (ConfigKey, bool) {
	for _, k := range ConfigKeys() {
		if k.Name == name {
			return k, true
		}
	}
	return ConfigKey{}, false
}

// modelAliases maps Hugging Face model names used by earlier deployments to
// the Ollama build of the same model.
var modelAliases = map[string]string{
	"sentence-transformers/all-MiniLM-L6-v2": "all-minilm",
	"all-MiniLM-L6-v2":                       "all-minilm",
}

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService resolves and edits configuration.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. getenv defaults to
// os.Getenv when nil.
func NewSettingsService(configStore driven.ConfigStore, getenv func(string) string) *SettingsService {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &SettingsService{configStore: configStore, getenv: getenv}
}

// LoadSettings resolves settings from the config file, then the environment,
// then defaults, and validates the result.
func LoadSettings(configStore driven.ConfigStore, getenv func(string) string) (domain.Settings, error) {
	return NewSettingsService(configStore, getenv).Load()
}

// Load resolves and validates the settings.
func (s *SettingsService) Load() (domain.Settings, error) {
	settings := domain.DefaultSettings()

	// Config file
	if v := s.configStore.GetString(KeyEmbedProvider); v != "" {
		settings.Embedding.Provider = domain.EmbeddingProvider(v)
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	s.setString(&settings.Embedding.Model, KeyEmbedModel)
	s.setString(&settings.Embedding.BaseURL, KeyEmbedBaseURL)
	s.setString(&settings.Embedding.APIKey, KeyEmbedAPIKey)
	s.setInt(&settings.Embedding.Dimensions, KeyEmbedDims)
	if _, ok := s.configStore.Get(KeyEmbedRPS); ok {
		settings.Embedding.RequestsPerSecond = s.configStore.GetFloat(KeyEmbedRPS)
	}
	s.setBool(&settings.Embedding.Cache, KeyEmbedCache)

	if v := s.configStore.GetString(KeyStoreBackend); v != "" {
		settings.VectorStore.Backend = domain.VectorBackend(v)
	}
	s.setString(&settings.VectorStore.URL, KeyStoreURL)
	s.setString(&settings.VectorStore.APIKey, KeyStoreAPIKey)
	s.setString(&settings.VectorStore.Collection, KeyStoreCollection)
	s.setInt(&settings.VectorStore.TimeoutSeconds, KeyStoreTimeout)
	s.setString(&settings.VectorStore.Path, KeyStorePath)

	s.setInt(&settings.Chunking.Size, KeyChunkSize)
	s.setInt(&settings.Chunking.Overlap, KeyChunkOverlap)
	s.setBool(&settings.Extract.OCR, KeyOCR)
	s.setString(&settings.Extract.OCRLanguage, KeyOCRLanguage)
	s.setString(&settings.DataDir, KeyDataDir)

	// Environment
	s.setEnv(&settings.VectorStore.URL, EnvQdrantURL)
	s.setEnv(&settings.VectorStore.APIKey, EnvQdrantAPIKey)
	s.setEnv(&settings.VectorStore.Collection, EnvQdrantCollection)
	s.setEnv(&settings.Embedding.Model, EnvEmbedModel)
	switch settings.Embedding.Provider {
	case domain.EmbeddingProviderOpenAI:
		s.setEnv(&settings.Embedding.APIKey, EnvOpenAIAPIKey)
	case domain.EmbeddingProviderOllama:
		if host := strings.TrimSpace(s.getenv(EnvOllamaHost)); host != "" {
			settings.Embedding.BaseURL = ollamaURL(host)
		}
	}

	if alias, ok := modelAliases[settings.Embedding.Model]; ok && settings.Embedding.Provider == domain.EmbeddingProviderOllama {
		settings.Embedding.Model = alias
	}

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Set parses raw according to the key's kind and persists it.
func (s *SettingsService) Set(key, raw string) error {
	k, ok := LookupConfigKey(key)
	if !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	var value any
	var err error
	switch k.Kind {
	case KindInt:
		value, err = strconv.Atoi(raw)
	case KindFloat:
		value, err = strconv.ParseFloat(raw, 64)
	case KindBool:
		value, err = strconv.ParseBool(raw)
	default:
		value = raw
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	switch key {
	case KeyEmbedProvider:
		if !domain.EmbeddingProvider(raw).IsValid() {
			return fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, raw)
		}
	case KeyStoreBackend:
		if !domain.VectorBackend(raw).IsValid() {
			return fmt.Errorf("%w: vector store backend %q", domain.ErrUnsupportedType, raw)
		}
	}

	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Entries returns every key present in the config file with its value.
// Secret values are masked.
func (s *SettingsService) Entries() [][2]string {
	keys := s.configStore.Keys()
	out := make([][2]string, 0, len(keys))
	for _, key := range keys {
		v, _ := s.configStore.Get(key)
		value := fmt.Sprint(v)
		if k, ok := LookupConfigKey(key); ok && k.Secret {
			value = Mask(value)
		}
		out = append(out, [2]string{key, value})
	}
	return out
}

// Path returns the config file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func (s *SettingsService) setString(dst *string, key string) {
	if v := s.configStore.GetString(key); v != "" {
		*dst = v
	}
}

func (s *SettingsService) setInt(dst *int, key string) {
	if _, ok := s.configStore.Get(key); ok {
		*dst = s.configStore.GetInt(key)
	}
}

func (s *SettingsService) setBool(dst *bool, key string) {
	if _, ok := s.configStore.Get(key); ok {
		*dst = s.configStore.GetBool(key)
	}
}

func (s *SettingsService) setEnv(dst *string, name string) {
	if v := strings.TrimSpace(s.getenv(name)); v != "" {
		*dst = v
	}
}

// ollamaURL accepts OLLAMA_HOST in the forms Ollama itself does:
// "host:port", "host" or a full URL.
func ollamaURL(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	if !strings.Contains(host, ":") {
		host += ":11434"
	}
	return "http://" + host
}
