package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner. It answers pdfinfo with a
// page count, pdftotext with per-page text and writes fake images for
// pdfimages.
type mockRunner struct {
	pages    int
	pageText map[int]string
	images   map[int]int
	infoErr  error
	textErr  error
	missing  string
	calls    []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))
	switch name {
	case pdfinfo:
		if m.infoErr != nil {
			return nil, m.infoErr
		}
		return []byte(fmt.Sprintf("Producer: test\nPages:          %d\nEncrypted: no\n", m.pages)), nil
	case pdftotext:
		if m.textErr != nil {
			return nil, m.textErr
		}
		var page int
		fmt.Sscanf(args[1], "%d", &page)
		return []byte(m.pageText[page] + "\f"), nil
	case pdfimages:
		var page int
		fmt.Sscanf(args[1], "%d", &page)
		prefix := args[len(args)-1]
		for i := 0; i < m.images[page]; i++ {
			name := fmt.Sprintf("%s-%03d.png", prefix, i)
			if err := os.WriteFile(name, []byte("png"), 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return nil, errors.New("unexpected command " + name)
}

func (m *mockRunner) LookPath(name string) (string, error) {
	if name == m.missing {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + name, nil
}

// mockOCR returns "ocr:<basename>" for every image.
type mockOCR struct {
	seen []string
	err  error
}

func (m *mockOCR) Recognise(_ context.Context, imagePath string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.seen = append(m.seen, filepath.Base(imagePath))
	return "ocr:" + filepath.Base(imagePath), nil
}

func (m *mockOCR) CheckAvailable() error { return nil }

var fakePDF = []byte("%PDF-1.4 fake pdf content")

func TestNew(t *testing.T) {
	normaliser := New(nil)
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New(nil).SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "application/pdf")
	assert.Len(t, mimeTypes, 1)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New(nil).Priority())
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestNormalise_TextLayer(t *testing.T) {
	runner := &mockRunner{
		pages:    2,
		pageText: map[int]string{1: "  Discharge summary\n", 2: "Follow-up in 2 weeks  "},
	}
	n := NewWithRunner(runner, &mockOCR{})

	text, err := n.Normalise(context.Background(), fakePDF)
	require.NoError(t, err)
	assert.Equal(t, "Discharge summary\nFollow-up in 2 weeks", text)

	for _, c := range runner.calls {
		assert.NotContains(t, c, pdfimages, "OCR must not run when every page has text")
	}
}

func TestNormalise_OCRFallback(t *testing.T) {
	runner := &mockRunner{
		pages:    3,
		pageText: map[int]string{1: "Typed page", 2: "   ", 3: "Last page"},
		images:   map[int]int{2: 2},
	}
	ocr := &mockOCR{}
	n := NewWithRunner(runner, ocr)

	text, err := n.Normalise(context.Background(), fakePDF)
	require.NoError(t, err)

	assert.Equal(t, "Typed page\nocr:page2-000.png\nocr:page2-001.png\nLast page", text)
	assert.Equal(t, []string{"page2-000.png", "page2-001.png"}, ocr.seen)
}

func TestNormalise_ImageOnlyDocument(t *testing.T) {
	runner := &mockRunner{pages: 1, images: map[int]int{1: 1}}
	n := NewWithRunner(runner, &mockOCR{})

	text, err := n.Normalise(context.Background(), fakePDF)
	require.NoError(t, err)
	assert.Equal(t, "ocr:page1-000.png", text)
}

func TestNormalise_BlankPage(t *testing.T) {
	runner := &mockRunner{pages: 1}
	n := NewWithRunner(runner, &mockOCR{})

	text, err := n.Normalise(context.Background(), fakePDF)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestNormalise_OCRDisabled(t *testing.T) {
	runner := &mockRunner{
		pages:    2,
		pageText: map[int]string{1: "Only page with text"},
		images:   map[int]int{2: 3},
	}
	n := NewWithRunner(runner, nil)

	text, err := n.Normalise(context.Background(), fakePDF)
	require.NoError(t, err)
	assert.Equal(t, "Only page with text", text)
}

func TestNormalise_Unparseable(t *testing.T) {
	runner := &mockRunner{infoErr: errors.New("Syntax Error: Couldn't find trailer dictionary")}
	n := NewWithRunner(runner, nil)

	_, err := n.Normalise(context.Background(), []byte("not a pdf"))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

// TestNormalise_RunnerError tests error handling when pdftotext fails.
func TestNormalise_RunnerError(t *testing.T) {
	runner := &mockRunner{pages: 1, textErr: errors.New("pdftotext crashed")}
	n := NewWithRunner(runner, nil)

	_, err := n.Normalise(context.Background(), fakePDF)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestNormalise_OCRError(t *testing.T) {
	runner := &mockRunner{pages: 1, images: map[int]int{1: 1}}
	n := NewWithRunner(runner, &mockOCR{err: fmt.Errorf("%w: tesseract failed", domain.ErrExtraction)})

	_, err := n.Normalise(context.Background(), fakePDF)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestNormalise_ToolMissing(t *testing.T) {
	n := NewWithRunner(&mockRunner{missing: pdfimages}, nil)

	_, err := n.Normalise(context.Background(), fakePDF)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
	assert.Contains(t, err.Error(), "pdfimages")
}

func TestCheckAvailable(t *testing.T) {
	assert.NoError(t, NewWithRunner(&mockRunner{}, nil).CheckAvailable())
	assert.ErrorIs(t, NewWithRunner(&mockRunner{missing: pdfinfo}, nil).CheckAvailable(), ErrPDFToolNotFound)
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Error(t, ErrPDFToolNotFound)
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

// Integration test - only runs if poppler is installed.
func TestNormalise_Integration(t *testing.T) {
	if err := New(nil).CheckAvailable(); err != nil {
		t.Skip("poppler not available, skipping integration test")
	}

	// This test would require a real PDF file.
	// For CI, we rely on the mock tests above.
	t.Skip("integration test requires sample PDF file")
}
