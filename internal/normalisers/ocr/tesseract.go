// Package ocr recognises text in page images with tesseract.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/medindex/internal/adapters/driven/command"
	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

const binary = "tesseract"

// ErrTesseractNotFound is returned when tesseract is not on PATH.
var ErrTesseractNotFound = fmt.Errorf("%w: tesseract not found in PATH", domain.ErrToolNotFound)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// Engine runs tesseract on single images.
type Engine struct {
	runner   driven.CommandRunner
	language string
}

// New creates an engine that shells out to the tesseract binary.
func New(language string) *Engine {
	return NewWithRunner(command.New(), language)
}

// NewWithRunner creates an engine with a custom command runner.
func NewWithRunner(runner driven.CommandRunner, language string) *Engine {
	if language == "" {
		language = domain.DefaultOCRLanguage
	}
	return &Engine{runner: runner, language: language}
}

// Language returns the tesseract language code.
func (e *Engine) Language() string {
	return e.language
}

// CheckAvailable verifies tesseract is installed.
func (e *Engine) CheckAvailable() error {
	if _, err := e.runner.LookPath(binary); err != nil {
		return ErrTesseractNotFound
	}
	return nil
}

// Recognise returns the text tesseract reads from the image at imagePath.
func (e *Engine) Recognise(ctx context.Context, imagePath string) (string, error) {
	out, err := e.runner.Run(ctx, binary, imagePath, "stdout", "-l", e.language)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: tesseract failed on %s: %v", domain.ErrExtraction, imagePath, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// InstallInstructions returns platform-specific install instructions.
func InstallInstructions() string {
	return `tesseract is required to read scanned pages.

Install with:
  macOS:  brew install tesseract
  Ubuntu: apt install tesseract-ocr
  Fedora: dnf install tesseract

Extra languages are packaged separately (e.g. tesseract-ocr-deu).
OCR can be disabled with: medindex config set extract.ocr false`
}
