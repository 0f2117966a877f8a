// Package config loads papertrail settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvAPIURL   = "PAPERTRAIL_API_URL"
	EnvLogLevel = "PAPERTRAIL_LOG_LEVEL"
	EnvDB       = "PAPERTRAIL_DB"
)

// Config is the top-level configuration.
type Config struct {
	API      APIConfig     `yaml:"api"`
	Store    StoreConfig   `yaml:"store"`
	Input    InputConfig   `yaml:"input"`
	Overlay  OverlayConfig `yaml:"overlay"`
	Serve    ServeConfig   `yaml:"serve"`
	LogLevel string        `yaml:"log_level"` // debug | info | warn | error

	// MaxWriteBacks bounds URL write-backs per user flow.
	MaxWriteBacks int `yaml:"max_write_backs"`
}

// APIConfig locates the data service.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects a local SQLite data set. When Path is set the client
// queries it in-process instead of calling the API.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// InputConfig controls page search input.
type InputConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// OverlayConfig controls the command overlay.
type OverlayConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Cap      int           `yaml:"cap"`
	Theme    string        `yaml:"theme"` // light | dark
}

// ServeConfig controls the data service listener.
type ServeConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 10 * time.Second,
		},
		Input:         InputConfig{Debounce: 300 * time.Millisecond},
		Overlay:       OverlayConfig{Debounce: 200 * time.Millisecond, Cap: 5, Theme: "light"},
		Serve:         ServeConfig{Listen: ":5000"},
		LogLevel:      "info",
		MaxWriteBacks: 10,
	}
}

// Load reads path (optional: "" uses defaults only), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.Store.Path = v
	}
}

// Validate checks that values are present and sane.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Path == "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL))
		}
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be > 0"))
	}
	if c.Input.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("input.debounce must be > 0"))
	}
	if c.Overlay.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("overlay.debounce must be > 0"))
	}
	if c.Overlay.Cap <= 0 {
		errs = append(errs, fmt.Errorf("overlay.cap must be > 0"))
	}
	if c.Overlay.Theme != "light" && c.Overlay.Theme != "dark" {
		errs = append(errs, fmt.Errorf("overlay.theme must be light or dark, got %q", c.Overlay.Theme))
	}
	if c.MaxWriteBacks <= 0 {
		errs = append(errs, fmt.Errorf("max_write_backs must be > 0"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel converts a level name into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
}

// Level returns the configured log level. Call after Validate.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}
