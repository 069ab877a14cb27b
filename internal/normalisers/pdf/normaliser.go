// Package pdf extracts text from PDF documents with the poppler command line
// tools, falling back to OCR of embedded images for pages without a text layer.
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/medindex/internal/adapters/driven/command"
	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/logger"
)

const (
	pdfinfo   = "pdfinfo"
	pdftotext = "pdftotext"
	pdfimages = "pdfimages"
)

// requiredTools are the poppler binaries every extraction needs.
var requiredTools = []string{pdfinfo, pdftotext, pdfimages}

// ErrPDFToolNotFound is returned when a poppler binary is not installed.
var ErrPDFToolNotFound = fmt.Errorf("%w: pdftotext, pdfinfo and pdfimages (poppler) are required", domain.ErrToolNotFound)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct {
	runner driven.CommandRunner

	// ocr reads image-only pages. Nil disables the fallback.
	ocr driven.OCREngine
}

// New creates a PDF normaliser that shells out to poppler.
// A nil ocr engine disables the OCR fallback.
func New(ocr driven.OCREngine) *Normaliser {
	return NewWithRunner(command.New(), ocr)
}

// NewWithRunner creates a normaliser with a custom command runner.
func NewWithRunner(runner driven.CommandRunner, ocr driven.OCREngine) *Normaliser {
	return &Normaliser{runner: runner, ocr: ocr}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// CheckAvailable verifies the poppler tools are installed.
func (n *Normaliser) CheckAvailable() error {
	for _, tool := range requiredTools {
		if _, err := n.runner.LookPath(tool); err != nil {
			return fmt.Errorf("%w (missing %s)", ErrPDFToolNotFound, tool)
		}
	}
	return nil
}

// Normalise extracts the text of every page. A page whose text layer is
// empty is replaced by the OCR text of its embedded images, in order.
// Pages are joined with newlines and the result is trimmed.
func (n *Normaliser) Normalise(ctx context.Context, data []byte) (string, error) {
	if err := n.CheckAvailable(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	dir, err := os.MkdirTemp("", "medindex-pdf-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp dir: %v", domain.ErrExtraction, err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: write temp file: %v", domain.ErrExtraction, err)
	}

	pages, err := n.pageCount(ctx, path)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, pages)
	ocrPages := 0
	for page := 1; page <= pages; page++ {
		text, err := n.pageText(ctx, path, page)
		if err != nil {
			return "", err
		}
		if text == "" && n.ocr != nil {
			text, err = n.ocrPage(ctx, path, dir, page)
			if err != nil {
				return "", err
			}
			ocrPages++
		}
		parts = append(parts, text)
	}

	logger.Debug("pdf: %d pages, %d via OCR", pages, ocrPages)
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// pageCount reads the page count from pdfinfo. A pdfinfo failure means the
// bytes are not a PDF poppler can parse.
func (n *Normaliser) pageCount(ctx context.Context, path string) (int, error) {
	out, err := n.runner.Run(ctx, pdfinfo, path)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: unreadable PDF: %v", domain.ErrExtraction, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Pages" {
			continue
		}
		pages, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("%w: bad page count %q", domain.ErrExtraction, value)
		}
		return pages, nil
	}
	return 0, fmt.Errorf("%w: pdfinfo reported no page count", domain.ErrExtraction)
}

// pageText returns the trimmed text layer of one page.
func (n *Normaliser) pageText(ctx context.Context, path string, page int) (string, error) {
	p := strconv.Itoa(page)
	out, err := n.runner.Run(ctx, pdftotext, "-f", p, "-l", p, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: pdftotext failed on page %d: %v", domain.ErrExtraction, page, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ocrPage extracts every image on page as PNG and runs OCR on each.
func (n *Normaliser) ocrPage(ctx context.Context, path, dir string, page int) (string, error) {
	p := strconv.Itoa(page)
	prefix := filepath.Join(dir, "page"+p)
	if _, err := n.runner.Run(ctx, pdfimages, "-f", p, "-l", p, "-png", path, prefix); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: pdfimages failed on page %d: %v", domain.ErrExtraction, page, err)
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("%w: list page images: %v", domain.ErrExtraction, err)
	}
	sort.Strings(images)

	texts := make([]string, 0, len(images))
	for _, img := range images {
		text, err := n.ocr.Recognise(ctx, img)
		if err != nil {
			return "", err
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	logger.Debug("pdf: page %d has no text layer, OCR read %d images", page, len(images))
	return strings.Join(texts, "\n"), nil
}

// InstallInstructions returns platform-specific install instructions.
func InstallInstructions() string {
	return `pdftotext, pdfinfo and pdfimages are required for PDF support.

Install poppler with:
  macOS:  brew install poppler
  Ubuntu: apt install poppler-utils
  Fedora: dnf install poppler-utils`
}
