package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

const testDims = 16

// --- Mock implementations ---

// mockExtractor treats every input as UTF-8 text.
type mockExtractor struct {
	err error
}

func (m *mockExtractor) Extract(_ context.Context, data []byte, _, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return string(data), nil
}

// mockEmbedder hashes words into buckets so texts sharing words are similar.
type mockEmbedder struct {
	mu       sync.Mutex
	err      error
	batches  int
	lastSize int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.batches++
	m.lastSize = len(texts)

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return testDims }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return m.err }
func (m *mockEmbedder) Close() error                 { return nil }

func bagOfWords(text string) []float32 {
	v := make([]float32, testDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%testDims]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if sum == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
	return v
}

// failingStore wraps a store and injects errors per operation.
type failingStore struct {
	driven.VectorStore
	ensureErr error
	upsertErr error
	searchErr error
	pruneErr  error

	lastLimit  int
	lastFilter *domain.Filter
}

func (s *failingStore) EnsureCollection(ctx context.Context) error {
	if s.ensureErr != nil {
		return s.ensureErr
	}
	return s.VectorStore.EnsureCollection(ctx)
}

func (s *failingStore) Upsert(ctx context.Context, points []domain.Point) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.VectorStore.Upsert(ctx, points)
}

func (s *failingStore) PruneDocument(ctx context.Context, documentID string, keep int) error {
	if s.pruneErr != nil {
		return s.pruneErr
	}
	return s.VectorStore.PruneDocument(ctx, documentID, keep)
}

func (s *failingStore) Search(ctx context.Context, v []float32, limit int, f *domain.Filter) ([]domain.SearchResult, error) {
	s.lastLimit, s.lastFilter = limit, f
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.VectorStore.Search(ctx, v, limit, f)
}

// mockConnector replays scripted scan results and watch changes.
type mockConnector struct {
	docs     []domain.RawDocument
	errs     []error
	changes  []domain.RawDocumentChange
	watchErr error
}

func (c *mockConnector) Type() string                     { return "mock" }
func (c *mockConnector) Validate(_ context.Context) error { return nil }
func (c *mockConnector) Close() error                     { return nil }

func (c *mockConnector) FullSync(_ context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument, len(c.docs))
	errs := make(chan error, len(c.errs))
	for _, d := range c.docs {
		docs <- d
	}
	for _, e := range c.errs {
		errs <- e
	}
	close(docs)
	close(errs)
	return docs, errs
}

func (c *mockConnector) Watch(_ context.Context) (<-chan domain.RawDocumentChange, error) {
	if c.watchErr != nil {
		return nil, c.watchErr
	}
	ch := make(chan domain.RawDocumentChange, len(c.changes))
	for _, change := range c.changes {
		ch <- change
	}
	close(ch)
	return ch, nil
}

// mockFetcher serves fixed files by URL.
type mockFetcher struct {
	files map[string]*driven.FetchedFile
}

func (f *mockFetcher) Fetch(_ context.Context, url string) (*driven.FetchedFile, error) {
	file, ok := f.files[url]
	if !ok {
		return nil, errors.Join(domain.ErrInvalidInput, errors.New("status 404"))
	}
	return file, nil
}
