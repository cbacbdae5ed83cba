package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "profiles.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentSubjects)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 4096, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 1500, cfg.HIBP.MinIntervalMs)
	assert.Equal(t, 15, cfg.HIBP.TimeoutSecs)
	assert.Equal(t, 1, cfg.HIBP.MaxAttempts)
	assert.InDelta(t, 5.0, cfg.Geocode.RateLimit, 0.001)
	assert.Equal(t, 4096, cfg.Geocode.CacheSize)
	assert.Equal(t, 60, cfg.Geocode.MissTTLMins)
	assert.Equal(t, "https://api.opencorporates.com/v0.4", cfg.Companies.BaseURL)
	assert.Equal(t, 100000, cfg.Extraction.MaxChars)
	assert.Contains(t, cfg.Extraction.Extensions, ".docx")
	assert.Equal(t, 1000, cfg.Session.DebounceMs)
	assert.Empty(t, cfg.Anthropic.Key)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/profiles
log:
  level: debug
  format: console
server:
  port: 9090
batch:
  max_concurrent_subjects: 8
hibp:
  min_interval_ms: 2000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/profiles", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrentSubjects)
	assert.Equal(t, 2000, cfg.HIBP.MinIntervalMs)
	// Defaults still apply for unset values
	assert.Equal(t, 15, cfg.HIBP.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PROFILE_STORE_DRIVER", "postgres")
	t.Setenv("PROFILE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvSecrets(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PROFILE_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("PROFILE_HIBP_KEY", "hibp-test")
	t.Setenv("PROFILE_GEOCODE_MAPBOX_TOKEN", "pk.test")
	t.Setenv("PROFILE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, "hibp-test", cfg.HIBP.Key)
	assert.Equal(t, "pk.test", cfg.Geocode.MapboxToken)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: ["), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "profiles.db"
	cfg.Batch.MaxConcurrentSubjects = 4
	cfg.HIBP.MinIntervalMs = 1500
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateExtract(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidateBreachCheck(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("breach-check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hibp.key is required")

	cfg.HIBP.Key = "k"
	assert.NoError(t, cfg.Validate("breach-check"))
}

func TestValidateStoreDrivers(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("enrich"))

	cfg.Store.Driver = "postgres"
	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/profiles"
	assert.NoError(t, cfg.Validate("import"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql"`)
}

func TestValidateBatch_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Batch.MaxConcurrentSubjects = 0

	err := cfg.Validate("batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "max_concurrent_subjects must be between 1 and 32")

	cfg.Anthropic.Key = "k"
	cfg.Batch.MaxConcurrentSubjects = 32
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
