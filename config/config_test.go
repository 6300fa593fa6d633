package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroplay/netplay-service/config"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfig_Full(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":9090"
logging:
  env: prod
  backend: zap
session:
  defaultMaxPlayers: 8
  reapInterval: 45s
  pingInterval: 10s
  sendBuffer: 128
`)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "prod", cfg.Logging.Env)
	assert.Equal(t, "zap", cfg.Logging.Backend)
	assert.Equal(t, 8, cfg.Session.DefaultMaxPlayers)
	assert.Equal(t, 45*time.Second, cfg.ReapEvery())
	assert.Equal(t, 10*time.Second, cfg.PingEvery())
	assert.Equal(t, 128, cfg.Session.SendBuffer)
}

func TestLoadConfig_Defaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
`)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "netplay-service", cfg.Logging.Service)
	assert.Equal(t, "dev", cfg.Logging.Env)
	assert.Equal(t, "std", cfg.Logging.Backend)
	assert.Equal(t, 4, cfg.Session.DefaultMaxPlayers)
	assert.Equal(t, 64, cfg.Session.SendBuffer)
	assert.Equal(t, 30*time.Second, cfg.ReapEvery())
	assert.Equal(t, 15*time.Second, cfg.PingEvery())
}

func TestLoadConfig_MissingAddr(t *testing.T) {
	writeConfig(t, `
logging:
  env: dev
`)

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_BadDurationFallsBack(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
session:
  reapInterval: soon
`)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.ReapEvery())
}
