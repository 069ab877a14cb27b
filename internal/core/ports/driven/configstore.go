package driven

// ConfigStore is the flat key/value view of the settings file. Keys are
// dot-joined table paths such as "vector_store.url". Typed getters return
// the zero value when a key is missing or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	// GetFloat widens integer values.
	GetFloat(key string) float64
	GetBool(key string) bool
	// GetStringSlice accepts both []string and decoded []any arrays.
	GetStringSlice(key string) []string

	// Keys lists every stored key, sorted.
	Keys() []string

	// Set writes through to the backing file.
	Set(key string, value any) error
	Save() error
	Load() error

	// Path names the backing file, or ":memory:".
	Path() string
}
