// Package fetch downloads record files referenced by a fileUrl.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/ratelimit"
)

// Ensure Client implements the interface.
var _ driven.Fetcher = (*Client)(nil)

// Defaults.
const (
	DefaultMaxBytes = 50 << 20
	DefaultTimeout  = 60 * time.Second
)

// Config holds fetch client configuration.
type Config struct {
	// MaxBytes caps the downloaded body. Larger files are rejected.
	MaxBytes int64

	// Timeout bounds each download.
	Timeout time.Duration

	// Limiter throttles downloads. May be nil.
	Limiter *ratelimit.Limiter
}

// Client is an HTTP(S) byte source.
type Client struct {
	client   *http.Client
	maxBytes int64
	limiter  *ratelimit.Limiter
}

// NewClient creates a fetch client.
func NewClient(cfg Config) *Client {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		client:   &http.Client{Timeout: cfg.Timeout},
		maxBytes: cfg.MaxBytes,
		limiter:  cfg.Limiter,
	}
}

// Fetch downloads rawURL. The filename comes from Content-Disposition when
// present, otherwise from the last path segment.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*driven.FetchedFile, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: fileUrl %q is not an http(s) URL", domain.ErrInvalidInput, rawURL)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrInvalidInput, u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.RecordRateLimitError(ratelimit.RetryAfter(resp))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: fetch %s: status %d", domain.ErrInvalidInput, u.Redacted(), resp.StatusCode)
	}
	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%w: fetch %s: %d bytes exceeds limit of %d", domain.ErrInvalidInput, u.Redacted(), resp.ContentLength, c.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrInvalidInput, u.Redacted(), err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: fetch %s: body exceeds limit of %d bytes", domain.ErrInvalidInput, u.Redacted(), c.maxBytes)
	}

	return &driven.FetchedFile{
		Content:     data,
		Filename:    filename(resp, u),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func filename(resp *http.Response, u *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return strings.TrimSpace(base)
}
