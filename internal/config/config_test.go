package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"POLYGON_API_KEY", "POLYGON_BASE_URL", "HTTP_ADDR", "LOG_LEVEL", "DB_DRIVER", "DB_DSN", "PREFETCH_CRON", "HTTPS_PROXY"} {
		t.Setenv(k, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "https://api.polygon.io/v2/aggs/ticker/", cfg.Polygon.BaseURL)
	assert.Equal(t, "asc", cfg.Polygon.Sort)
	assert.Equal(t, DefaultSymbols, cfg.Charts.Symbols)
	assert.Equal(t, []string{"minute", "hour", "day", "week", "month", "quarter", "year"}, cfg.Charts.Timespans)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/stock_charts.db", cfg.Database.DSN)
	assert.Equal(t, time.Duration(0), cfg.Polygon.Timeout)
	assert.Equal(t, DefaultSymbols, cfg.Prefetch.Symbols)

	// API key is mandatory
	assert.Error(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9000"
polygon:
  api_key: from-file
  sort: desc
  unadjusted: true
  timeout: 15s
charts:
  symbols: [AAPL]
  timespans: [day, week]
  timezone: America/New_York
database:
  driver: postgres
  dsn: postgres://localhost/charts
`)
	t.Setenv("POLYGON_API_KEY", "from-env")
	t.Setenv("HTTP_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "from-env", cfg.Polygon.APIKey)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "desc", cfg.Polygon.Sort)
	assert.True(t, cfg.Polygon.Unadjusted)
	assert.Equal(t, 15*time.Second, cfg.Polygon.Timeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.HasSymbol("AAPL"))
	assert.False(t, cfg.HasSymbol("MSFT"))
	assert.True(t, cfg.HasTimespan("week"))
	assert.False(t, cfg.HasTimespan("minute"))
	assert.Equal(t, "America/New_York", cfg.Location().String())
}

func TestLoad_EnvFile(t *testing.T) {
	isolateEnv(t)
	os.Unsetenv("POLYGON_API_KEY")
	envPath := writeFile(t, "test.env", "POLYGON_API_KEY=dotenv-key\n")
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() { os.Unsetenv("POLYGON_API_KEY") })

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Polygon.APIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "config.yaml", "server: [not, a, map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolateEnv(t)
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		cfg.Polygon.APIKey = "key"
		return cfg
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad sort", func(c *Config) { c.Polygon.Sort = "random" }},
		{"negative timeout", func(c *Config) { c.Polygon.Timeout = -time.Second }},
		{"unknown timespan", func(c *Config) { c.Charts.Timespans = []string{"fortnight"} }},
		{"bad timezone", func(c *Config) { c.Charts.Timezone = "Mars/Olympus" }},
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"empty symbols", func(c *Config) { c.Charts.Symbols = nil }},
		{"bad cron", func(c *Config) { c.Prefetch.Cron = "every tuesday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
