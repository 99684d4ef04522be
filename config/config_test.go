package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Queue.Driver)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, int64(10<<20), cfg.Media.MaxImageBytes)
	assert.Equal(t, 5*time.Minute, cfg.Redis.PostCacheTTL)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadFileYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  port: 9090
database:
  driver: sqlite
  dsn: "file::memory:"
queue:
  driver: redis
redis:
  addr: "localhost:6379"
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("BLOG_JWT_SECRET", "s3cret")
	t.Setenv("BLOG_SERVER_PORT", "7070")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadFileRejectsBadDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue:\n  driver: kafka\n"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "unsupported queue driver")

	require.NoError(t, os.WriteFile(path, []byte("server:\n  mode: prod\n"), 0o600))
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "unsupported server mode")
}

func TestLoadFileRedisQueueNeedsAddr(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue:\n  driver: redis\n"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "requires redis.addr")
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
