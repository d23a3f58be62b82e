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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: quality-engine
  version: 1.2.3
  env: production
server:
  host: 127.0.0.1
  port: 9000
  read_timeout: 20s
logging:
  level: debug
  format: text
monitoring:
  enabled: true
  path: /metrics
quality:
  smoothing_alpha: 0.2
  history_limit: 500
  alert_cooldown: 10m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "quality-engine", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 0.2, cfg.Quality.SmoothingAlpha)
	assert.Equal(t, 500, cfg.Quality.HistoryLimit)
	assert.Equal(t, 10*time.Minute, cfg.Quality.AlertCooldown.Std())
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `app: {name: minimal}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.NotZero(t, cfg.Server.Port)
	assert.Equal(t, "/metrics", cfg.Monitoring.Path)
	assert.Greater(t, cfg.Quality.SmoothingAlpha, 0.0)
	assert.Equal(t, 1000, cfg.Quality.HistoryLimit)
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("QE_TEST_PORT", "7777")
	path := writeConfig(t, `
server:
  port: ${QE_TEST_PORT:8085}
logging:
  level: ${QE_TEST_MISSING:warn}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "warn", string(cfg.Logging.Level))
}

func TestLoadEnvDefaultUsedWhenUnset(t *testing.T) {
	path := writeConfig(t, `server: {port: ${QE_DEFINITELY_UNSET:9001}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a: mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := writeConfig(t, `server: {port: -1}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadWeights(t *testing.T) {
	path := writeConfig(t, `
quality:
  weights:
    freshness: 0.9
    completeness: 0.9
    accuracy: 0.9
    consistency: 0.9
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 8085, cfg.Server.Port)
}
