// Package ratelimit throttles outbound HTTP calls to embedding providers
// and record file hosts.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration for one upstream.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero or less disables
	// throttling; 429 backoff still applies.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultBackoff is used when a 429 response carries no Retry-After.
const DefaultBackoff = 30 * time.Second

// Limiter is a token bucket with an additional backoff window set after the
// upstream answers 429. It never retries on its own; callers return the
// error and the next call waits out the window.
// A nil *Limiter never blocks.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimitError.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// RecordRateLimitError sets a backoff period. Call this on a 429 response.
func (l *Limiter) RecordRateLimitError(retryAfter time.Duration) {
	if l == nil {
		return
	}
	if retryAfter <= 0 {
		retryAfter = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.retryAt = time.Now().Add(retryAfter)
}

// Allow checks if a request can be made immediately without blocking.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}

// RetryAfter parses the Retry-After header of a response as seconds or an
// HTTP date. It returns 0 when the header is absent or malformed.
func RetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}
