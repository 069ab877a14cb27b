package driven

import "context"

// TextExtractor turns raw document bytes into a single normalised string.
// Filename and content type are optional format hints.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// OCREngine recognises text in a single image file.
type OCREngine interface {
	// Recognise returns the text found in the image at path.
	Recognise(ctx context.Context, imagePath string) (string, error)

	// CheckAvailable returns domain.ErrToolNotFound when the engine cannot run.
	CheckAvailable() error
}

// CommandRunner executes an external binary and returns its stdout.
// Extractors shell out through it so tests never need the real tools.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// LookPath reports whether name can be found on PATH.
	LookPath(name string) (string, error)
}
