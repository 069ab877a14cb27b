package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// collect runs a FullSync and drains it, separating per-file and fatal errors.
func collect(t *testing.T, ctx context.Context, c *Connector) ([]domain.RawDocument, []*driven.SourceError, error) {
	t.Helper()
	docs, errs := c.FullSync(ctx)
	var (
		out   []domain.RawDocument
		skips []*driven.SourceError
		fatal error
	)
	for docs != nil || errs != nil {
		select {
		case d, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			out = append(out, d)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			var se *driven.SourceError
			if errors.As(err, &se) {
				skips = append(skips, se)
			} else {
				fatal = err
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out, skips, fatal
}

func TestNew(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		c := New(Config{Root: "/tmp/inbox/"})
		assert.Equal(t, "/tmp/inbox", c.Root())
		assert.Equal(t, DefaultInclude(), c.include)
		assert.Equal(t, int64(DefaultMaxFileSize), c.maxSize)
		assert.Equal(t, "filesystem", c.Type())
	})

	t.Run("implements Connector interface", func(t *testing.T) {
		var _ driven.Connector = New(Config{Root: "/tmp"})
	})
}

func TestConnector_Validate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	writeFile(t, file, "x")

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid directory", Config{Root: dir}, false},
		{"missing directory", Config{Root: filepath.Join(dir, "nope")}, true},
		{"root is a file", Config{Root: file}, true},
		{"bad include pattern", Config{Root: dir, Include: []string{"[a-"}}, true},
		{"bad exclude pattern", Config{Root: dir, Exclude: []string{"{a,"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.cfg).Validate(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, New(Config{Root: dir}).Validate(ctx), context.Canceled)
	})
}

func TestConnector_FullSync(t *testing.T) {
	t.Run("emits matching files with sidecar metadata", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "labs.pdf"), "%PDF-1.4")
		writeFile(t, filepath.Join(dir, "labs.pdf.meta.yaml"), "patientId: p-1\nrecordId: 123\ntitle: Lipid panel\nward: cardiology\n")
		writeFile(t, filepath.Join(dir, "2024", "notes.txt"), "Follow-up in two weeks.")
		writeFile(t, filepath.Join(dir, "scan.png"), "png")

		c := New(Config{Root: dir, Defaults: domain.RecordMetadata{PatientID: "default", DoctorName: "Dr. Grey"}})
		docs, skips, fatal := collect(t, context.Background(), c)

		require.NoError(t, fatal)
		assert.Empty(t, skips)
		require.Len(t, docs, 2)

		notes := docs[0]
		assert.Equal(t, filepath.Join(dir, "2024", "notes.txt"), notes.URI)
		assert.Equal(t, "text/plain", notes.MIMEType)
		assert.Equal(t, "default", notes.Metadata.PatientID)

		labs := docs[1]
		assert.Equal(t, "application/pdf", labs.MIMEType)
		assert.Equal(t, []byte("%PDF-1.4"), labs.Content)
		assert.Equal(t, "p-1", labs.Metadata.PatientID)
		assert.Equal(t, "123", labs.Metadata.RecordID)
		assert.Equal(t, "Lipid panel", labs.Metadata.Title)
		assert.Equal(t, "Dr. Grey", labs.Metadata.DoctorName)
		assert.Equal(t, "cardiology", labs.Metadata.Extra["ward"])
	})

	t.Run("skips hidden files and directories", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".draft.txt"), "x")
		writeFile(t, filepath.Join(dir, ".trash", "old.txt"), "x")
		writeFile(t, filepath.Join(dir, "visible.txt"), "x")

		docs, _, fatal := collect(t, context.Background(), New(Config{Root: dir}))
		require.NoError(t, fatal)
		require.Len(t, docs, 1)
		assert.Equal(t, filepath.Join(dir, "visible.txt"), docs[0].URI)
	})

	t.Run("exclude wins over include", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "keep", "a.txt"), "x")
		writeFile(t, filepath.Join(dir, "archive", "b.txt"), "x")

		c := New(Config{Root: dir, Exclude: []string{"archive/**"}})
		docs, _, fatal := collect(t, context.Background(), c)
		require.NoError(t, fatal)
		require.Len(t, docs, 1)
		assert.Equal(t, filepath.Join(dir, "keep", "a.txt"), docs[0].URI)
	})

	t.Run("oversized and malformed sidecar files are reported and skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "big.txt"), "0123456789abcdef")
		writeFile(t, filepath.Join(dir, "bad.txt"), "ok")
		writeFile(t, filepath.Join(dir, "bad.txt.meta.yaml"), "patientId: [unclosed")
		writeFile(t, filepath.Join(dir, "good.txt"), "ok")

		c := New(Config{Root: dir, MaxFileSize: 8})
		docs, skips, fatal := collect(t, context.Background(), c)
		require.NoError(t, fatal)
		require.Len(t, docs, 1)
		assert.Equal(t, filepath.Join(dir, "good.txt"), docs[0].URI)
		require.Len(t, skips, 2)
		for _, s := range skips {
			assert.ErrorIs(t, s, domain.ErrInvalidInput)
		}
	})

	t.Run("missing root is fatal", func(t *testing.T) {
		c := New(Config{Root: filepath.Join(t.TempDir(), "missing")})
		docs, _, fatal := collect(t, context.Background(), c)
		assert.Empty(t, docs)
		assert.Error(t, fatal)
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		dir := t.TempDir()
		for i := 0; i < 20; i++ {
			writeFile(t, filepath.Join(dir, string(rune('a'+i))+".txt"), "x")
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		docs, _, _ := collect(t, ctx, New(Config{Root: dir}))
		assert.Less(t, len(docs), 20)
	})
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		create   bool
		op       fsnotify.Op
		wantType domain.ChangeType
		wantNil  bool
	}{
		{name: "create", file: "a.txt", create: true, op: fsnotify.Create, wantType: domain.ChangeCreated},
		{name: "write", file: "a.txt", create: true, op: fsnotify.Write, wantType: domain.ChangeUpdated},
		{name: "write with chmod", file: "a.txt", create: true, op: fsnotify.Write | fsnotify.Chmod, wantType: domain.ChangeUpdated},
		{name: "remove", file: "gone.txt", op: fsnotify.Remove, wantType: domain.ChangeDeleted},
		{name: "rename", file: "moved.pdf", op: fsnotify.Rename, wantType: domain.ChangeDeleted},
		{name: "chmod only", file: "a.txt", create: true, op: fsnotify.Chmod, wantNil: true},
		{name: "not included", file: "image.png", create: true, op: fsnotify.Create, wantNil: true},
		{name: "hidden", file: ".a.txt", create: true, op: fsnotify.Create, wantNil: true},
		{name: "hidden remove", file: ".a.txt", op: fsnotify.Remove, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.file)
			if tt.create {
				writeFile(t, path, "content")
			}

			c := New(Config{Root: dir, Defaults: domain.RecordMetadata{PatientID: "p-1"}})
			change := c.handleFsEvent(fsnotify.Event{Name: path, Op: tt.op})

			if tt.wantNil {
				assert.Nil(t, change)
				return
			}
			require.NotNil(t, change)
			assert.Equal(t, tt.wantType, change.Type)
			assert.Equal(t, path, change.Document.URI)
			assert.Equal(t, "p-1", change.Document.Metadata.PatientID)
			if tt.wantType != domain.ChangeDeleted {
				assert.Equal(t, []byte("content"), change.Document.Content)
			}
		})
	}

	t.Run("sidecar write updates the owner", func(t *testing.T) {
		dir := t.TempDir()
		owner := filepath.Join(dir, "labs.txt")
		writeFile(t, owner, "content")
		writeFile(t, SidecarPath(owner), "patientId: p-9\n")

		change := New(Config{Root: dir}).handleFsEvent(fsnotify.Event{Name: SidecarPath(owner), Op: fsnotify.Write})
		require.NotNil(t, change)
		assert.Equal(t, domain.ChangeUpdated, change.Type)
		assert.Equal(t, owner, change.Document.URI)
		assert.Equal(t, "p-9", change.Document.Metadata.PatientID)
	})

	t.Run("sidecar without owner is ignored", func(t *testing.T) {
		dir := t.TempDir()
		sidecar := filepath.Join(dir, "orphan.txt.meta.yaml")
		writeFile(t, sidecar, "patientId: p-9\n")

		assert.Nil(t, New(Config{Root: dir}).handleFsEvent(fsnotify.Event{Name: sidecar, Op: fsnotify.Create}))
	})

	t.Run("delete keeps recordId from surviving sidecar", func(t *testing.T) {
		dir := t.TempDir()
		owner := filepath.Join(dir, "labs.txt")
		writeFile(t, SidecarPath(owner), "patientId: p-9\nrecordId: rec-7\n")

		change := New(Config{Root: dir}).handleFsEvent(fsnotify.Event{Name: owner, Op: fsnotify.Remove})
		require.NotNil(t, change)
		assert.Equal(t, domain.ChangeDeleted, change.Type)
		assert.Equal(t, "rec-7", change.Document.Metadata.RecordID)
	})
}

func TestConnector_Watch(t *testing.T) {
	t.Run("reports new files", func(t *testing.T) {
		dir := t.TempDir()
		c := New(Config{Root: dir})
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := c.Watch(ctx)
		require.NoError(t, err)

		path := filepath.Join(dir, "new.txt")
		writeFile(t, path, "content")

		select {
		case change := <-changes:
			assert.Contains(t, []domain.ChangeType{domain.ChangeCreated, domain.ChangeUpdated}, change.Type)
			assert.Equal(t, path, change.Document.URI)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for file change event")
		}
	})

	t.Run("reports files in new subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		c := New(Config{Root: dir})
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := c.Watch(ctx)
		require.NoError(t, err)

		sub := filepath.Join(dir, "2024")
		require.NoError(t, os.Mkdir(sub, 0755))
		path := filepath.Join(sub, "later.txt")

		deadline := time.After(3 * time.Second)
		// The directory watch is added asynchronously; keep rewriting.
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case change := <-changes:
				if change.Document.URI == path {
					return
				}
			case <-ticker.C:
				writeFile(t, path, time.Now().String())
			case <-deadline:
				t.Fatal("timeout waiting for nested file event")
			}
		}
	})

	t.Run("channel closes on cancel", func(t *testing.T) {
		c := New(Config{Root: t.TempDir()})
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		changes, err := c.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel not closed")
		}
	})

	t.Run("missing root", func(t *testing.T) {
		c := New(Config{Root: filepath.Join(t.TempDir(), "missing")})
		_, err := c.Watch(context.Background())
		assert.Error(t, err)
	})

	t.Run("closed connector", func(t *testing.T) {
		c := New(Config{Root: t.TempDir()})
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		_, err := c.Watch(context.Background())
		assert.Error(t, err)
	})
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"dir/.git/config", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"file.hidden", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isHidden(tt.path))
		})
	}
}
