package driven

import "time"

// ConfigStore provides key/value access to the configuration file.
// Keys are dotted TOML paths, e.g. "remote.base_url" or "sync.interval".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString returns "" if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt returns 0 if key doesn't exist or isn't an integer.
	GetInt(key string) int

	// GetBool returns false if key doesn't exist or isn't a boolean.
	GetBool(key string) bool

	// GetDuration parses a duration string. Returns 0 when absent or malformed.
	GetDuration(key string) time.Duration

	// Set stores a configuration value and persists it.
	Set(key string, value any) error

	// Unset removes a key and persists the change.
	Unset(key string) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
