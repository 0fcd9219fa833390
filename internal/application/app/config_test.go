package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/constants"
	"github.com/penwyp/go-fullsnack/internal/data/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &AppConfig{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, api.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, constants.RefreshDebounce, cfg.Debounce)
	assert.Equal(t, constants.RefreshRetryDelay, cfg.RetryDelay)
	assert.Equal(t, constants.MaxRefreshRetries, cfg.MaxRetries)
	assert.Equal(t, constants.HTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, "Local", cfg.Timezone)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, *cfg.WatchCredentials)
	assert.True(t, filepath.IsAbs(cfg.CredentialsPath))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  AppConfig
	}{
		{"base url scheme", AppConfig{BaseURL: "ftp://example.com/"}},
		{"timezone", AppConfig{Timezone: "Mars/Olympus"}},
		{"log format", AppConfig{LogFormat: "xml"}},
		{"negative debounce", AppConfig{Debounce: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://127.0.0.1:9000/api/v1/
timezone: UTC
debounce: 50ms
retry_delay: 1s
max_retries: 5
watch_credentials: false
log_format: json
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://127.0.0.1:9000/api/v1/", cfg.BaseURL)
	assert.Equal(t, 50*time.Millisecond, cfg.Debounce)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.False(t, *cfg.WatchCredentials)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &AppConfig{}, cfg)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debounce: [not a duration"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".fullsnack"), ExpandPath("~/.fullsnack"))
	assert.Equal(t, "/tmp/x", ExpandPath("/tmp/x"))
}
