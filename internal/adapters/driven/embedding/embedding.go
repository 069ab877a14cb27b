// Package embedding holds the helpers shared by the embedding provider
// adapters: vector normalisation, dimension checks and HTTP error mapping.
package embedding

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/ratelimit"
)

// maxErrorBody bounds how much of an error response is quoted in errors.
const maxErrorBody = 512

// Normalize scales v to unit L2 length in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	m := search.Float32s(v).Magnitude()
	if m == 0 {
		return v
	}
	for i := range v {
		v[i] /= m
	}
	return v
}

// FromFloat64 converts a provider vector to float32 and normalises it.
func FromFloat64(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return Normalize(out)
}

// CheckDimensions fails with domain.ErrSchema when any vector's length
// differs from want. The configured dimension sizes the collection, so a
// model answering with another size is a configuration error.
func CheckDimensions(model string, vectors [][]float32, want int) error {
	for i, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("%w: model %s returned %d dimensions for input %d, expected %d",
				domain.ErrSchema, model, len(v), i, want)
		}
	}
	return nil
}

// StatusError maps a non-2xx provider response to domain.ErrEmbedding.
// A 429 also arms the limiter's backoff window.
func StatusError(provider string, resp *http.Response, body []byte, limiter *ratelimit.Limiter) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		limiter.RecordRateLimitError(ratelimit.RetryAfter(resp))
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrEmbedding, provider, resp.StatusCode, msg)
}

// Batches splits texts into consecutive slices of at most size elements.
func Batches(texts []string, size int) [][]string {
	if size <= 0 || len(texts) <= size {
		return [][]string{texts}
	}
	out := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		out = append(out, texts[start:min(start+size, len(texts))])
	}
	return out
}
