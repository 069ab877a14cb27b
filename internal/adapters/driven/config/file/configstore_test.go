package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Path(t *testing.T) {
	store, dir := newStore(t)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestDefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".medindex"), dir)
}

func TestNewConfigStore_MissingFileIsEmpty(t *testing.T) {
	store, _ := newStore(t)
	_, ok := store.Get("embedding.model")
	assert.False(t, ok)
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not toml {{[["), 0600))

	store, err := NewConfigStore(dir)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[embedding]
provider = "openai"
model = "text-embedding-3-small"
requests_per_second = 5
cache = true

[vector_store]
backend = "qdrant"
url = "http://qdrant:6333"
timeout_seconds = 30

[connector.filesystem]
include = ["**/*.pdf", "**/*.txt"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.Equal(t, 5.0, store.GetFloat("embedding.requests_per_second"))
	assert.True(t, store.GetBool("embedding.cache"))
	assert.Equal(t, 30, store.GetInt("vector_store.timeout_seconds"))
	assert.Equal(t, []string{"**/*.pdf", "**/*.txt"}, store.GetStringSlice("connector.filesystem.include"))
	assert.Equal(t, []string{
		"connector.filesystem.include",
		"embedding.cache",
		"embedding.model",
		"embedding.provider",
		"embedding.requests_per_second",
		"vector_store.backend",
		"vector_store.timeout_seconds",
		"vector_store.url",
	}, store.Keys())
}

func TestConfigStore_TypedGettersOnMismatch(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("chunking.size", 900))
	require.NoError(t, store.Set("embedding.model", "all-minilm"))

	assert.Equal(t, "", store.GetString("chunking.size"))
	assert.Equal(t, 0, store.GetInt("embedding.model"))
	assert.False(t, store.GetBool("embedding.model"))
	assert.Equal(t, 0.0, store.GetFloat("embedding.model"))
	assert.Nil(t, store.GetStringSlice("embedding.model"))
}

func TestConfigStore_SetPersistsAsTables(t *testing.T) {
	store, dir := newStore(t)
	require.NoError(t, store.Set("vector_store.collection", "medical_records"))
	require.NoError(t, store.Set("chunking.size", 900))
	require.NoError(t, store.Set("embedding.requests_per_second", 2.5))
	require.NoError(t, store.Set("extract.ocr", false))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[vector_store]")
	assert.NotContains(t, string(raw), "'vector_store.collection'")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "medical_records", reloaded.GetString("vector_store.collection"))
	assert.Equal(t, 900, reloaded.GetInt("chunking.size"))
	assert.Equal(t, 2.5, reloaded.GetFloat("embedding.requests_per_second"))
	_, ok := reloaded.Get("extract.ocr")
	assert.True(t, ok)
	assert.False(t, reloaded.GetBool("extract.ocr"))
}

func TestConfigStore_KeyConflict(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("embedding", "ollama"))
	assert.Error(t, store.Set("embedding.model", "all-minilm"))

	_, ok := store.Get("embedding.model")
	assert.False(t, ok, "rejected key must not be kept")
	assert.Equal(t, "ollama", store.GetString("embedding"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("vector_store.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SaveWriteError(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("a", "b"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("c", "d"))
}

func TestConfigStore_LoadInvalidTOML(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("valid", "data"))
	require.NoError(t, os.WriteFile(store.Path(), []byte("invalid ][}{"), 0600))

	assert.Error(t, store.Load())
}

func TestConfigStore_UnmarshallableValue(t *testing.T) {
	store, _ := newStore(t)
	assert.Error(t, store.Set("channel", make(chan int)))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "worker.key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 10)
}
