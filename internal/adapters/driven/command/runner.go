// Package command runs external binaries on behalf of the normalisers.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

// Ensure Runner implements the interface.
var _ driven.CommandRunner = (*Runner)(nil)

// Runner executes commands with os/exec.
type Runner struct{}

// New creates a new command runner.
func New() *Runner {
	return &Runner{}
}

// Run executes name with args and returns stdout. On failure the error
// carries the first line of stderr, which is where poppler and tesseract
// report what went wrong.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// LookPath searches PATH for name.
func (r *Runner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
