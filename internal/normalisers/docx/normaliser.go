// Package docx extracts the body text of Word documents, the usual format
// of referral and clinic letters.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

// MIMEType is the Office Open XML word processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// maxDocumentXML bounds the decompressed size of word/document.xml.
const maxDocumentXML = 64 << 20

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise returns the document's paragraphs, one per line. Bytes that are
// not a zip archive with a word/document.xml part fail with ErrExtraction.
func (n *Normaliser) Normalise(_ context.Context, data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", domain.ErrExtraction, err)
	}

	part, err := readPart(reader, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", domain.ErrExtraction, err)
	}
	return paragraphs(part)
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxDocumentXML+1))
		if err != nil {
			return nil, err
		}
		if len(data) > maxDocumentXML {
			return nil, fmt.Errorf("%s exceeds %d bytes", name, maxDocumentXML)
		}
		return data, nil
	}
	return nil, fmt.Errorf("missing %s", name)
}

// paragraphs walks the XML tokens so paragraphs nested in tables and text
// boxes are found as well as top level ones.
func paragraphs(part []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(part))

	var (
		lines  []string
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: docx: %v", domain.ErrExtraction, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte(' ')
			case "br", "cr":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					lines = append(lines, s)
				}
				line.Reset()
			case "tc":
				line.WriteByte(' ')
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
