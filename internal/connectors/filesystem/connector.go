package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// ConnectorType is the identifier returned by Type.
const ConnectorType = "filesystem"

// DefaultMaxFileSize skips files larger than this.
const DefaultMaxFileSize = 50 << 20

// DefaultInclude matches every extractable record format anywhere under
// the root.
func DefaultInclude() []string {
	return []string{"**/*.pdf", "**/*.txt", "**/*.docx", "**/*.html", "**/*.htm"}
}

// Config holds filesystem connector configuration.
type Config struct {
	// Root is the inbox directory.
	Root string

	// Include patterns are doublestar globs relative to Root.
	// Empty means DefaultInclude.
	Include []string

	// Exclude patterns win over Include.
	Exclude []string

	// Defaults is the metadata every file starts from before its sidecar
	// is applied.
	Defaults domain.RecordMetadata

	// MaxFileSize in bytes. Zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// Connector reads record files from a local directory tree.
type Connector struct {
	root     string
	include  []string
	exclude  []string
	defaults domain.RecordMetadata
	maxSize  int64

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a filesystem connector.
func New(cfg Config) *Connector {
	include := cfg.Include
	if len(include) == 0 {
		include = DefaultInclude()
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Connector{
		root:     filepath.Clean(cfg.Root),
		include:  include,
		exclude:  cfg.Exclude,
		defaults: cfg.Defaults,
		maxSize:  maxSize,
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// Root returns the inbox directory.
func (c *Connector) Root() string {
	return c.root
}

// Validate checks the root is a readable directory and every pattern parses.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range append(append([]string{}, c.include...), c.exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: bad glob pattern %q", domain.ErrInvalidInput, p)
		}
	}
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("%w: inbox %s: %v", domain.ErrInvalidInput, c.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: inbox %s is not a directory", domain.ErrInvalidInput, c.root)
	}
	return nil
}

// FullSync walks the root and emits every matching file.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == c.root {
					return err
				}
				return c.sendErr(ctx, errs, &driven.SourceError{URI: path, Err: err})
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel := c.rel(path)
			if d.IsDir() {
				if path != c.root && (isHidden(d.Name()) || c.excluded(rel+"/")) {
					return filepath.SkipDir
				}
				return nil
			}
			if !c.wanted(path) {
				return nil
			}

			doc, err := c.load(path)
			if err != nil {
				return c.sendErr(ctx, errs, &driven.SourceError{URI: path, Err: err})
			}

			select {
			case docs <- *doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			select {
			case errs <- err:
			case <-ctx.Done():
			}
		}
	}()

	return docs, errs
}

func (c *Connector) sendErr(ctx context.Context, errs chan<- error, err error) error {
	select {
	case errs <- err:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch streams create, write and remove events for matching files under
// the root. New subdirectories are watched as they appear. A write to a
// sidecar is reported as an update of the file it describes.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("connector is closed")
	}
	if c.watcher != nil {
		c.mu.Unlock()
		return nil, errors.New("connector is already watching")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	c.watcher = watcher
	c.mu.Unlock()

	if err := c.addTree(watcher, c.root); err != nil {
		_ = c.Close()
		return nil, err
	}

	changes := make(chan domain.RawDocumentChange)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(filepath.Base(event.Name)) {
						if err := c.addTree(watcher, event.Name); err != nil {
							logger.Warn("watch %s: %v", event.Name, err)
						}
						continue
					}
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch %s: %v", c.root, err)
			}
		}
	}()

	return changes, nil
}

// addTree watches dir and its non-hidden subdirectories.
func (c *Connector) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && (isHidden(d.Name()) || c.excluded(c.rel(path)+"/")) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent converts a filesystem event into a document change, or nil
// when the event is irrelevant.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.RawDocumentChange {
	path := event.Name
	changeType := domain.ChangeUpdated
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		changeType = domain.ChangeDeleted
	case event.Has(fsnotify.Create):
		changeType = domain.ChangeCreated
	case event.Has(fsnotify.Write):
	default:
		return nil
	}

	if isSidecar(path) {
		// Metadata changed: re-index the owner with its new metadata.
		// A removed sidecar also reverts the owner to the defaults.
		path = ownerOf(path)
		if _, err := os.Stat(path); err != nil {
			return nil
		}
		changeType = domain.ChangeUpdated
	}
	if !c.wanted(path) {
		return nil
	}

	if changeType == domain.ChangeDeleted {
		// The sidecar may still be on disk and carry the recordId.
		meta, _ := readSidecar(path)
		return &domain.RawDocumentChange{
			Type: domain.ChangeDeleted,
			Document: domain.RawDocument{
				URI:      path,
				MIMEType: mimeType(path),
				Metadata: c.defaults.Merge(meta),
			},
		}
	}

	doc, err := c.load(path)
	if err != nil {
		logger.Warn("read %s: %v", path, err)
		return nil
	}
	return &domain.RawDocumentChange{Type: changeType, Document: *doc}
}

// Close stops any watch in progress. Safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

// wanted reports whether path is a regular record file to emit.
func (c *Connector) wanted(path string) bool {
	if isSidecar(path) || isHidden(c.rel(path)) {
		return false
	}
	rel := c.rel(path)
	return c.included(rel) && !c.excluded(rel)
}

func (c *Connector) load(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file", domain.ErrInvalidInput)
	}
	if info.Size() > c.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrInvalidInput, info.Size(), c.maxSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta, err := readSidecar(path)
	if err != nil {
		return nil, err
	}

	return &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType(path),
		Content:  content,
		Metadata: c.defaults.Merge(meta),
	}, nil
}

func (c *Connector) rel(path string) string {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (c *Connector) included(rel string) bool {
	return matchAny(c.include, rel)
}

func (c *Connector) excluded(rel string) bool {
	return matchAny(c.exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// mimeType guesses from the extension, without parameters.
func mimeType(path string) string {
	t := mime.TypeByExtension(filepath.Ext(path))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
