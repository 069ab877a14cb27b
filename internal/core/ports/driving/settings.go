package driving

import "github.com/custodia-labs/medindex/internal/core/domain"

// SettingsService resolves and edits the configuration.
type SettingsService interface {
	// Load resolves the config file, environment and defaults, and
	// validates the result. Invalid settings are returned with the error.
	Load() (domain.Settings, error)

	// Set parses value for key and persists it.
	Set(key, value string) error

	// Entries returns the keys present in the config file, secrets masked.
	Entries() [][2]string

	// Path returns the config file path.
	Path() string
}
