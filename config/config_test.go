package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jsphon/node-process/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Worker.PoolSize)
	assert.Equal(t, store.TypeMemory, cfg.Store.Type)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
worker:
  pool_size: 4
metrics:
  enabled: true
  namespace: pipelines
store:
  type: file
  dir: /var/lib/pipelines
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Worker.PoolSize)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "pipelines", cfg.Metrics.Namespace)
	assert.Equal(t, store.TypeFile, cfg.Store.Type)
	assert.Equal(t, "/var/lib/pipelines", cfg.Store.Dir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")
	t.Setenv("NODE_PROCESS_LOG_LEVEL", "error")
	t.Setenv("NODE_PROCESS_POOL_SIZE", "7")
	t.Setenv("NODE_PROCESS_STORE_TYPE", "redis")
	t.Setenv("NODE_PROCESS_REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Worker.PoolSize)
	assert.Equal(t, store.TypeRedis, cfg.Store.Type)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
}

func TestValidate(t *testing.T) {
	t.Run("BadLevel", func(t *testing.T) {
		cfg := Default()
		cfg.Log.Level = "loud"
		assert.Error(t, cfg.Validate())
	})

	t.Run("BadFormat", func(t *testing.T) {
		cfg := Default()
		cfg.Log.Format = "xml"
		assert.Error(t, cfg.Validate())
	})

	t.Run("BadPoolSize", func(t *testing.T) {
		cfg := Default()
		cfg.Worker.PoolSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("BadStoreType", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Type = "etcd"
		assert.Error(t, cfg.Validate())
	})
}

func TestBuildLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"

	logger, err := cfg.BuildLogger()
	require.NoError(t, err)
	defer logger.Sync()

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestBuildLogger_JSONFormat(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	logger, err := cfg.BuildLogger()
	require.NoError(t, err)
	logger.Sync()
}
