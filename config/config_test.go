package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapilongo/OPiN/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
pipeline:
  concurrency: 2
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep defaults.
	assert.Equal(t, 4, cfg.Dispatcher.Workers)
	assert.Equal(t, 30*time.Second, cfg.Subscriptions.CacheTTL.Std())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 0\n"},
		{"bad log level", "log:\n  level: verbose\n"},
		{"zero concurrency", "pipeline:\n  concurrency: 0\n"},
		{"nats without url", "nats:\n  enabled: true\n  url: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoaderReloadKeepsPreviousOnError(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	loader, err := NewLoader(path, nil)
	require.NoError(t, err)
	require.Equal(t, 9000, loader.Config().Server.Port)

	var reloaded *Config
	loader.OnChange(func(c *Config) { reloaded = c })

	// A broken rewrite must not replace the good config.
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o600))
	loader.reload()
	assert.Equal(t, 9000, loader.Config().Server.Port)
	assert.Nil(t, reloaded)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600))
	loader.reload()
	assert.Equal(t, 9100, loader.Config().Server.Port)
	require.NotNil(t, reloaded)
	assert.Equal(t, 9100, reloaded.Server.Port)
}

func TestServerAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8081}
	assert.Equal(t, "127.0.0.1:8081", cfg.Address())
}
