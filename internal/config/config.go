// Package config loads the client settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvBaseURL overrides the configured backend address.
const EnvBaseURL = "ERPSYNC_BASE_URL"

// Defaults.
const (
	DefaultBaseURL   = "http://localhost:8080/api"
	DefaultTimeout   = 30 * time.Second
	DefaultPageLimit = 10
	DefaultSessionDB = "erpsync.db"
)

// Config holds the client settings.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	PageLimit int           `yaml:"page_limit"`
	SessionDB string        `yaml:"session_db"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		PageLimit: DefaultPageLimit,
		SessionDB: defaultSessionDB(),
	}
}

// defaultSessionDB places the session database in the user config
// directory when one exists.
func defaultSessionDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultSessionDB
	}
	return filepath.Join(dir, "erpsync", DefaultSessionDB)
}

// Load reads path over the defaults and applies the environment.
// An empty path skips the file; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys absent from data keep their value.
func Parse(data []byte, cfg *Config) error {
	var raw struct {
		BaseURL   *string `yaml:"base_url"`
		Timeout   *string `yaml:"timeout"`
		PageLimit *int    `yaml:"page_limit"`
		SessionDB *string `yaml:"session_db"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	if raw.BaseURL != nil {
		cfg.BaseURL = *raw.BaseURL
	}
	if raw.Timeout != nil {
		d, err := time.ParseDuration(*raw.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if raw.PageLimit != nil {
		cfg.PageLimit = *raw.PageLimit
	}
	if raw.SessionDB != nil {
		cfg.SessionDB = *raw.SessionDB
	}
	return nil
}

// Validate reports settings the client cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.PageLimit < 1 {
		errs = append(errs, fmt.Errorf("page_limit must be at least 1, got %d", c.PageLimit))
	}
	if c.SessionDB == "" {
		errs = append(errs, errors.New("session_db is required"))
	}
	return errors.Join(errs...)
}
