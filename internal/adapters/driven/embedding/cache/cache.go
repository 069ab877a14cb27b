// Package cache persists embeddings on disk so re-indexing unchanged chunks
// does not call the embedding provider again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Service wraps an EmbeddingService with a bbolt store keyed by the SHA-256
// of the input text. Each model and dimension pair gets its own bucket, so
// switching models never serves stale vectors.
type Service struct {
	inner  driven.EmbeddingService
	db     *bbolt.DB
	bucket []byte

	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens (or creates) the cache database at path in front of inner.
func Open(path string, inner driven.EmbeddingService) (*Service, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	bucket := []byte(fmt.Sprintf("%s/%d", inner.ModelName(), inner.Dimensions()))
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket %s: %w", bucket, err)
	}

	return &Service{inner: inner, db: db, bucket: bucket}, nil
}

// Embed returns the cached vector for text, embedding it on a miss.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch serves hits from the cache and embeds all misses in one call
// to the wrapped service.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for i, text := range texts {
			key := cacheKey(text)
			if data := b.Get(key[:]); data != nil && len(data) == 4*s.inner.Dimensions() {
				out[i] = decode(data)
				continue
			}
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}

	s.hits.Add(int64(len(texts) - len(missTexts)))
	s.misses.Add(int64(len(missTexts)))
	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missTexts), len(missTexts))

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = fresh[j]
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for j, text := range missTexts {
			key := cacheKey(text)
			if err := b.Put(key[:], encode(fresh[j])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The vectors are valid; only persistence failed.
		logger.Warn("embedding cache write failed: %v", err)
	}
	return out, nil
}

// Stats returns the number of cache hits and misses since Open.
func (s *Service) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Dimensions returns the wrapped service's vector size.
func (s *Service) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *Service) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the cache database and the wrapped service.
func (s *Service) Close() error {
	dbErr := s.db.Close()
	if err := s.inner.Close(); err != nil {
		return err
	}
	return dbErr
}

func cacheKey(text string) [sha256.Size]byte {
	return sha256.Sum256([]byte(text))
}

func encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(data []byte) []float32 {
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
