package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/medindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// DirName is the per-user directory under $HOME.
const DirName = ".medindex"

const fileName = "config.toml"

// ConfigStore persists settings as TOML. Reads are served from an
// in-memory copy keyed by dotted table paths; every Set rewrites the file.
type ConfigStore struct {
	*memory.ConfigStore

	writeMu  sync.Mutex
	filePath string
}

// DefaultDir returns ~/.medindex.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// NewConfigStore opens <configDir>/config.toml, creating configDir if
// needed. An empty configDir means DefaultDir.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		ConfigStore: memory.NewConfigStore(),
		filePath:    filepath.Join(configDir, fileName),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set updates key and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Snapshot()
	next[key] = value
	if err := s.write(next); err != nil {
		return err
	}
	s.Replace(next)
	return nil
}

func (s *ConfigStore) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write(s.Snapshot())
}

// write encodes flat as nested TOML. The file may hold API keys, so it is
// readable by the owner only.
func (s *ConfigStore) write(flat map[string]any) error {
	tree, err := nest(flat)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(tree)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0o600)
}

// Load rereads the file. A missing file leaves the store empty.
func (s *ConfigStore) Load() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return err
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}

	flat := map[string]any{}
	flatten(tree, "", flat)
	s.Replace(flat)
	return nil
}

func (s *ConfigStore) Path() string {
	return s.filePath
}

// flatten copies tree into out with dotted keys: {"a": {"b": 1}} becomes
// {"a.b": 1}.
func flatten(tree map[string]any, prefix string, out map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(sub, k, out)
			continue
		}
		out[k] = v
	}
}

// nest reverses flatten. A key that is both a value and a table prefix
// ("a" and "a.b") cannot be encoded.
func nest(flat map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	root := map[string]any{}
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table := root
		for _, part := range parts[:len(parts)-1] {
			switch child := table[part].(type) {
			case nil:
				sub := map[string]any{}
				table[part] = sub
				table = sub
			case map[string]any:
				table = child
			default:
				return nil, fmt.Errorf("config key %q conflicts with value at %q", key, part)
			}
		}
		leaf := parts[len(parts)-1]
		if _, taken := table[leaf]; taken {
			return nil, fmt.Errorf("config key %q conflicts with an existing table", key)
		}
		table[leaf] = flat[key]
	}
	return root, nil
}
