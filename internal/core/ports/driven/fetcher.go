package driven

import "context"

// FetchedFile is a document downloaded from a fileUrl.
type FetchedFile struct {
	Content     []byte
	Filename    string
	ContentType string
}

// Fetcher downloads record bytes referenced by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedFile, error)
}
