package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/custodia-labs/replica/internal/adapters/driven/config/file"
	"github.com/custodia-labs/replica/internal/core/domain"
)

// envPrefix prefixes environment overrides: REPLICA_REMOTE_ACCESS_TOKEN sets remote.access_token.
const envPrefix = "REPLICA"

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"space":      "space",
	"backend":    "backend",
	"data-dir":   "data_dir",
	"export-dir": "export.dir",
}

// resolveConfigPath returns the --config value or the default path.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return file.DefaultPath()
}

// loadConfig reads the config file, then applies environment variables and
// flags, later layers winning.
func loadConfig(cmd *cobra.Command) (domain.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return domain.Config{}, err
	}
	loaded, err := file.Load(path)
	if err != nil {
		return domain.Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return domain.Config{}, fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}

	if err := applyOverrides(v, &loaded); err != nil {
		return domain.Config{}, err
	}
	return loaded, nil
}

// applyOverrides copies every key set in v over cfg.
func applyOverrides(v *viper.Viper, cfg *domain.Config) error {
	strs := map[string]*string{
		"space":               &cfg.Space,
		"environment":         &cfg.Environment,
		"backend":             &cfg.Backend,
		"data_dir":            &cfg.DataDir,
		"locale.default":      &cfg.Locale.Default,
		"remote.base_url":     &cfg.Remote.BaseURL,
		"remote.access_token": &cfg.Remote.AccessToken,
		"export.dir":          &cfg.Export.Dir,
		"sync.token_key":      &cfg.Sync.TokenKey,
		"webhook.addr":        &cfg.Webhook.Addr,
		"webhook.secret":      &cfg.Webhook.Secret,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	durations := map[string]*domain.Duration{
		"cache.ttl":                &cfg.Cache.TTL,
		"sync.interval":            &cfg.Sync.Interval,
		"sync.retry_delay":         &cfg.Sync.RetryDelay,
		"sync.webhook_retry_delay": &cfg.Sync.WebhookRetryDelay,
		"remote.timeout":           &cfg.Remote.Timeout,
	}
	for key, dst := range durations {
		if !v.IsSet(key) {
			continue
		}
		if err := dst.UnmarshalText([]byte(v.GetString(key))); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if v.IsSet("cache.enabled") {
		cfg.Cache.Enabled = v.GetBool("cache.enabled")
	}
	if v.IsSet("sync.max_retries") {
		cfg.Sync.MaxRetries = v.GetInt("sync.max_retries")
	}
	if v.IsSet("sync.max_webhook_retries") {
		cfg.Sync.MaxWebhookRetries = v.GetInt("sync.max_webhook_retries")
	}
	if v.IsSet("remote.requests_per_second") {
		cfg.Remote.RequestsPerSecond = v.GetFloat64("remote.requests_per_second")
	}
	return nil
}
