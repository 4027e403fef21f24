package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600))
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".replica", "config.toml"), store.Path())
}

func TestNewConfigStore_ReadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
space = "abc"
backend = "sqlite"

[cache]
enabled = true

[sync]
interval = "10m"
max_retries = 3

[remote]
base_url = "https://cdn.example.com"
`)

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	tests := []struct {
		key  string
		got  any
		want any
	}{
		{"space", store.GetString("space"), "abc"},
		{"backend", store.GetString("backend"), "sqlite"},
		{"cache.enabled", store.GetBool("cache.enabled"), true},
		{"sync.interval", store.GetDuration("sync.interval"), 10 * time.Minute},
		{"sync.max_retries", store.GetInt("sync.max_retries"), 3},
		{"remote.base_url", store.GetString("remote.base_url"), "https://cdn.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_TypedGettersOnMismatch(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("space", 42))
	require.NoError(t, store.Set("cache.enabled", "yes"))
	require.NoError(t, store.Set("sync.max_retries", "three"))

	assert.Empty(t, store.GetString("space"))
	assert.False(t, store.GetBool("cache.enabled"))
	assert.Zero(t, store.GetInt("sync.max_retries"))
	assert.Empty(t, store.GetString("missing"))
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "space = [unterminated")

	store, err := NewConfigStore(dir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_SetPersistsWithRestrictedPermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.access_token", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "secret", reloaded.GetString("remote.access_token"))
}

func TestConfigStore_NestedKeysRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.base_url", "https://cdn.example.com"))
	require.NoError(t, store.Set("sync.interval", "10m"))
	require.NoError(t, store.Set("space", "abc"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[remote]")

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com", store2.GetString("remote.base_url"))
	assert.Equal(t, 10*time.Minute, store2.GetDuration("sync.interval"))
	assert.Equal(t, "abc", store2.GetString("space"))
}

func TestConfigStore_GetDuration_Malformed(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("sync.interval", "soon"))
	assert.Equal(t, time.Duration(0), store.GetDuration("sync.interval"))
	assert.Equal(t, time.Duration(0), store.GetDuration("missing"))
}

func TestConfigStore_ConflictingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.base_url", "x"))
	assert.Error(t, store.Set("remote", "scalar"))
}

func TestConfigStore_Unset(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("webhook.secret", "s3cret"))
	require.NoError(t, store.Unset("webhook.secret"))

	_, ok := store.Get("webhook.secret")
	assert.False(t, ok)

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok = reloaded.Get("webhook.secret")
	assert.False(t, ok)
}

func TestConfigStore_ConcurrentSets(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	keys := []string{"space", "backend", "locale.default", "webhook.addr"}
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Set(key, "v"))
		}()
	}
	wg.Wait()

	require.NoError(t, store.Load())
	for _, key := range keys {
		assert.Equal(t, "v", store.GetString(key))
	}
}
