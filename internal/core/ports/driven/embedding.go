package driven

import "context"

// EmbeddingService turns text into unit-length vectors of a fixed size.
// The ollama and openai adapters implement it, optionally wrapped by the
// bbolt-backed cache.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch keeps input order: result i is the vector of texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is fixed by configuration so a collection can be created
	// before the first call.
	Dimensions() int

	ModelName() string

	// Ping fails with domain.ErrEmbedding when the provider is unreachable.
	Ping(ctx context.Context) error

	Close() error
}
