package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "papertrail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300*time.Millisecond, cfg.Input.Debounce)
	assert.Equal(t, 200*time.Millisecond, cfg.Overlay.Debounce)
	assert.Equal(t, 5, cfg.Overlay.Cap)
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogLevel, "")

	path := writeConfig(t, `
api:
  base_url: https://data.example.org
input:
  debounce: 150ms
overlay:
  theme: dark
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://data.example.org", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout, "default kept")
	assert.Equal(t, 150*time.Millisecond, cfg.Input.Debounce)
	assert.Equal(t, "dark", cfg.Overlay.Theme)
	assert.Equal(t, 5, cfg.Overlay.Cap)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://127.0.0.1:9000")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDB, "")

	cfg, err := Load(writeConfig(t, "api:\n  base_url: https://data.example.org\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.API.BaseURL)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvDB, "/tmp/papertrail.db")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/papertrail.db", cfg.Store.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "api: [not, a, map]\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"store makes base url optional", func(c *Config) { c.API.BaseURL = ""; c.Store.Path = "data.db" }, ""},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"zero input debounce", func(c *Config) { c.Input.Debounce = 0 }, "input.debounce"},
		{"zero cap", func(c *Config) { c.Overlay.Cap = 0 }, "overlay.cap"},
		{"bad theme", func(c *Config) { c.Overlay.Theme = "solarized" }, "overlay.theme"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"zero write-backs", func(c *Config) { c.MaxWriteBacks = 0 }, "max_write_backs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Overlay.Cap = 0
	cfg.Overlay.Theme = "blue"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlay.cap")
	assert.Contains(t, err.Error(), "overlay.theme")
}

func TestApplyEnv_IgnoresEmpty(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(func(k string) (string, bool) { return "", true })
	assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}
