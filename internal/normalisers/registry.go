package normalisers

import (
	"bytes"
	"context"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Well known MIME types.
const (
	MIMETypePDF       = "application/pdf"
	MIMETypePlainText = "text/plain"
	mimeTypeOctet     = "application/octet-stream"
)

var pdfMagic = []byte("%PDF-")

// extensionTypes covers record formats the system MIME table may not know.
var extensionTypes = map[string]string{
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".htm":  "text/html",
	".html": "text/html",
	".md":   "text/markdown",
	".txt":  MIMETypePlainText,
}

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches extraction to the highest priority normaliser for a
// document's MIME type. Types no normaliser claims go to the text/plain
// normaliser.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{byMIME: make(map[string][]driven.Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range n.SupportedMIMETypes() {
		list := append(r.byMIME[mt], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[mt] = list
	}
}

// SupportedMIMETypes returns all MIME types that can be normalised.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.byMIME))
	for mt := range r.byMIME {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// Extract resolves the MIME type of data and runs the matching normaliser.
// With no matching normaliser at all the result is empty text.
func (r *Registry) Extract(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	mimeType := DetectMIMEType(data, filename, contentType)
	n := r.lookup(mimeType)
	if n == nil {
		logger.Warn("no normaliser for %s", mimeType)
		return "", nil
	}

	text, err := n.Normalise(ctx, data)
	if err != nil {
		return "", err
	}
	logger.Debug("extract: %s (%s) -> %d chars", displayName(filename), mimeType, len(text))
	return text, nil
}

func (r *Registry) lookup(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if list := r.byMIME[mimeType]; len(list) > 0 {
		return list[0]
	}
	if list := r.byMIME[MIMETypePlainText]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// DetectMIMEType resolves a document's MIME type. A PDF is recognised by a
// content type mentioning pdf, a .pdf filename or the %PDF- header. Otherwise
// an explicit content type wins over the filename extension, and anything
// unknown is treated as plain text.
func DetectMIMEType(data []byte, filename, contentType string) string {
	ct := normaliseContentType(contentType)
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case strings.Contains(ct, "pdf"), ext == ".pdf", bytes.HasPrefix(data, pdfMagic):
		return MIMETypePDF
	case ct != "" && ct != mimeTypeOctet:
		return ct
	}

	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if ext != "" {
		if byExt := normaliseContentType(mime.TypeByExtension(ext)); byExt != "" {
			return byExt
		}
	}
	return MIMETypePlainText
}

// normaliseContentType strips parameters and lowercases a content type.
func normaliseContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func displayName(filename string) string {
	if filename == "" {
		return "<upload>"
	}
	return filepath.Base(filename)
}
