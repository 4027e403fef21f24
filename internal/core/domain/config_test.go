package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultLocale, cfg.Locale.Default)
	assert.Equal(t, DefaultTokenKey, cfg.TokenKey())
}

func TestConfig_Validate_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "postgres"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedBackend))
}

func TestConfig_Validate_MissingLocale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Locale.Default = ""
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidInput))
}

func TestConfig_TokenKey_Fallback(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, DefaultTokenKey, cfg.TokenKey())
	cfg.Sync.TokenKey = "custom"
	assert.Equal(t, "custom", cfg.TokenKey())
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
