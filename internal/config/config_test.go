package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3002, cfg.Port)
	assert.Equal(t, "attest.db", cfg.Database)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: production
port: 8080
database: /var/lib/attest/attest.db
worker:
  timeout: 10s
scheduler:
  enabled: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/var/lib/attest/attest.db", cfg.Database)
	assert.Equal(t, 10*time.Second, cfg.Worker.Timeout)
	assert.False(t, cfg.Scheduler.Enabled)
	// Untouched keys keep defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.Scheduler.SyncInterval)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\n"), 0o644))

	t.Setenv("ATTEST_PORT", "9090")
	t.Setenv("ATTEST_DB", "/tmp/env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/env.db", cfg.Database)
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv("ATTEST_PORT", "not-a-port")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [oops\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
