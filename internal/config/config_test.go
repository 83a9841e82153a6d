package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "erpsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvBaseURL, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultPageLimit, cfg.PageLimit)
	assert.NotEmpty(t, cfg.SessionDB)
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	path := writeConfig(t, `
base_url: https://erp.example.com/api
timeout: 5s
page_limit: 25
session_db: /tmp/session.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Config{
		BaseURL:   "https://erp.example.com/api",
		Timeout:   5 * time.Second,
		PageLimit: 25,
		SessionDB: "/tmp/session.db",
	}, cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	path := writeConfig(t, "page_limit: 50\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.PageLimit)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://env:9000")
	path := writeConfig(t, "base_url: http://file:8000\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:9000", cfg.BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(EnvBaseURL, "")

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "base_url: [", "parsing config"},
		{"bad timeout", "timeout: soon", "timeout"},
		{"zero limit", "page_limit: 0", "page_limit must be at least 1"},
		{"negative timeout", "timeout: -1s", "timeout must be positive"},
		{"empty base url", `base_url: ""`, "base_url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
