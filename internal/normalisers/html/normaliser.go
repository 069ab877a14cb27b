package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips markup and returns one line per block element.
func (n *Normaliser) Normalise(_ context.Context, data []byte) (string, error) {
	return stripHTML(string(data)), nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	droppedElements = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}
	blockBoundary = regexp.MustCompile(
		`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|dt|dd)(\s[^>]*)?>|<(br|hr)\s*/?>`)
	cellBoundary = regexp.MustCompile(`(?i)</t[dh]>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces  = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// stripHTML removes tags and decodes entities. Table cells on one row are
// kept apart by a space so lab tables read as "Hemoglobin 13.2 g/dL".
func stripHTML(content string) string {
	for _, re := range droppedElements {
		content = re.ReplaceAllString(content, "")
	}
	content = cellBoundary.ReplaceAllString(content, " ")
	content = blockBoundary.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, "\u00a0", " ")

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
