package domain

import (
	"fmt"
	"time"
)

// DefaultLocale is the locale used when none is configured.
const DefaultLocale = "en-US"

// DefaultTokenKey is the reserved id of the sync cursor record.
const DefaultTokenKey = "sync:token"

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
	BackendLazy   = "lazy"
)

// Duration is a time.Duration that reads and writes as text ("30s", "5m").
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LocaleConfig describes the default locale and per-locale fallbacks.
type LocaleConfig struct {
	// Default is the locale used when none is requested, and the last fallback.
	Default string `toml:"default"`

	// Fallbacks maps a locale to the locale tried next, e.g. es-MX -> es-US.
	Fallbacks map[string]string `toml:"fallbacks"`
}

// RemoteConfig configures the HTTP delivery client.
type RemoteConfig struct {
	BaseURL           string   `toml:"base_url"`
	AccessToken       string   `toml:"access_token"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	Timeout           Duration `toml:"timeout"`
}

// ExportConfig configures the filesystem export client.
type ExportConfig struct {
	// Dir holds exported documents. When set it replaces the HTTP client.
	Dir string `toml:"dir"`
}

// CacheConfig configures the caching middleware.
type CacheConfig struct {
	Enabled bool     `toml:"enabled"`
	TTL     Duration `toml:"ttl"`
}

// SyncConfig configures the sync engine.
type SyncConfig struct {
	TokenKey          string   `toml:"token_key"`
	MaxRetries        int      `toml:"max_retries"`
	RetryDelay        Duration `toml:"retry_delay"`
	MaxWebhookRetries int      `toml:"max_webhook_retries"`
	WebhookRetryDelay Duration `toml:"webhook_retry_delay"`
	Interval          Duration `toml:"interval"`
}

// WebhookConfig configures the webhook receiver.
type WebhookConfig struct {
	Addr   string `toml:"addr"`
	Secret string `toml:"secret"`
}

// Config is the full application configuration.
type Config struct {
	Space       string        `toml:"space"`
	Environment string        `toml:"environment"`
	Backend     string        `toml:"backend"`
	DataDir     string        `toml:"data_dir"`
	Locale      LocaleConfig  `toml:"locale"`
	Remote      RemoteConfig  `toml:"remote"`
	Export      ExportConfig  `toml:"export"`
	Cache       CacheConfig   `toml:"cache"`
	Sync        SyncConfig    `toml:"sync"`
	Webhook     WebhookConfig `toml:"webhook"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Environment: "master",
		Backend:     BackendMemory,
		Locale: LocaleConfig{
			Default:   DefaultLocale,
			Fallbacks: map[string]string{},
		},
		Remote: RemoteConfig{
			BaseURL:           "https://cdn.contentful.com",
			RequestsPerSecond: 10,
			Burst:             5,
			Timeout:           Duration(30 * time.Second),
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration(5 * time.Minute),
		},
		Sync: SyncConfig{
			TokenKey:          DefaultTokenKey,
			MaxRetries:        3,
			RetryDelay:        Duration(time.Second),
			MaxWebhookRetries: 3,
			WebhookRetryDelay: Duration(10 * time.Second),
			Interval:          Duration(15 * time.Minute),
		},
		Webhook: WebhookConfig{
			Addr: "127.0.0.1:8765",
		},
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite, BackendRemote, BackendLazy:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Backend)
	}
	if c.Locale.Default == "" {
		return fmt.Errorf("%w: locale.default is required", ErrInvalidInput)
	}
	if c.Sync.MaxRetries < 0 || c.Sync.MaxWebhookRetries < 0 {
		return fmt.Errorf("%w: retry counts must not be negative", ErrInvalidInput)
	}
	return nil
}

// TokenKey returns the configured cursor id or the default.
func (c Config) TokenKey() string {
	if c.Sync.TokenKey == "" {
		return DefaultTokenKey
	}
	return c.Sync.TokenKey
}
