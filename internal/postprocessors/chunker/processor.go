// Package chunker provides a word-window text chunking processor.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of words shared by consecutive chunks.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Processor splits extracted text into overlapping word-windows.
// It implements the driven.Chunker interface.
type Processor struct {
	chunkSize int
	overlap   int
}

var _ driven.Chunker = (*Processor)(nil)

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits text into chunks.
func (p *Processor) Process(_ context.Context, text string) ([]domain.Chunk, error) {
	windows := Split(text, p.chunkSize, p.overlap)
	chunks := make([]domain.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = domain.Chunk{Index: i, Text: w}
	}
	return chunks, nil
}

// Step returns how many words the window start advances per chunk.
// An overlap that is not smaller than size would never advance, so the
// window then moves by a full size.
func Step(size, overlap int) int {
	if overlap >= size {
		return size
	}
	return size - overlap
}

// Split returns successive windows of size whitespace-delimited words, the
// start advancing by Step(size, overlap). Window text is the words joined by
// single spaces. Text shorter than size yields one window.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := Step(size, overlap)
	windows := make([]string, 0, (len(words)+step-1)/step)
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		w := strings.Join(words[start:end], " ")
		if strings.TrimSpace(w) == "" {
			continue
		}
		windows = append(windows, w)
	}
	return windows
}
