package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":4001", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  address: \":8080\"\nlog:\n  level: debug\n  encoding: json\nredis:\n  addr: localhost:6379\n  db: 2\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://yards.example, http://localhost:3000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"https://yards.example", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("LOG_ENCODING", "xml")
	_, err = LoadConfig("")
	assert.Error(t, err)
}
