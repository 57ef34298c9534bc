package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  bot_token: "123456:TOKEN"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
	assert.Equal(t, 200, cfg.RateLimit.MaxCost)
	assert.Equal(t, 60, cfg.RateLimit.WindowSeconds)
	assert.Equal(t, "memory", cfg.RateLimit.Store)
	assert.False(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 86400, cfg.Auth.MaxAgeSeconds)
	assert.Contains(t, cfg.Auth.PublicPathSet(), "/api/config")
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
rate_limit:
  max_cost: 100
  window_seconds: 30
  store: "redis"
  redis_addr: "localhost:6379"
  whitelist: ["10.0.0.1"]
auth:
  bot_token: "123456:TOKEN"
  public_paths: ["/api/config", "/api/load-test-db"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.RateLimit.MaxCost)
	assert.Equal(t, 30, cfg.RateLimit.WindowSeconds)
	assert.Equal(t, "redis", cfg.RateLimit.Store)
	assert.Equal(t, "localhost:6379", cfg.RateLimit.RedisAddr)
	assert.Contains(t, cfg.RateLimit.WhitelistSet(), "10.0.0.1")
	assert.Len(t, cfg.Auth.PublicPathSet(), 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DISABLE_RATE_LIMIT", "TRUE")
	t.Setenv("RATE_LIMIT_WHITELIST", "1.1.1.1, 2.2.2.2,")
	t.Setenv("BOT_TOKEN", "999:FROM-ENV")
	t.Setenv("REDIS_ADDR", "redis:6379")

	path := writeConfig(t, `
auth:
  bot_token: "123456:FROM-FILE"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.RateLimit.Disabled)
	wl := cfg.RateLimit.WhitelistSet()
	assert.Contains(t, wl, "1.1.1.1")
	assert.Contains(t, wl, "2.2.2.2")
	assert.Len(t, wl, 2)
	assert.Equal(t, "999:FROM-ENV", cfg.Auth.BotToken)
	assert.Equal(t, "redis:6379", cfg.RateLimit.RedisAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
