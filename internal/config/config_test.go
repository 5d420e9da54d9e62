package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeeklyStockPrice/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.LatestTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.HistoryTTL)
	assert.Equal(t, 5*time.Second, cfg.Query.AttemptTimeout)
	assert.Equal(t, 2, cfg.Query.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Query.InitialBackoff)
	assert.InDelta(t, 0.10, *cfg.Query.MaxMissingFraction, 1e-9)
	assert.Equal(t, 4, *cfg.Query.MaxClosureDays)
	assert.Equal(t, "1y", cfg.Query.AnalysisPeriod)
	assert.NotEmpty(t, cfg.Watchlist)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  rate_limit: 2.5
data_source:
  provider: rest
  base_url: http://bars.local
cache:
  latest_ttl: 45s
  history_ttl: 10m
query:
  max_missing_fraction: 0
  max_closure_days: 0
  analysis_period: 6M
watchlist:
  - symbol: " msft "
    name: Microsoft
    country: US
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.InDelta(t, 2.5, cfg.Server.RateLimit, 1e-9)
	assert.Equal(t, "rest", cfg.DataSource.Provider)
	assert.Equal(t, 45*time.Second, cfg.Cache.LatestTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.HistoryTTL)
	assert.Zero(t, *cfg.Query.MaxMissingFraction, "explicit zero disables the missing-sample check")
	assert.Zero(t, *cfg.Query.MaxClosureDays, "explicit zero counts every absent weekday")
	require.Len(t, cfg.Watchlist, 1)
	assert.Equal(t, model.Symbol("MSFT"), cfg.Watchlist[0].Symbol)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATA_PROVIDER", "mock")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("CACHE_LATEST_TTL", "1m")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(writeConfig(t, "data_source:\n  provider: yahoo\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mock", cfg.DataSource.Provider)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.LatestTTL)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "watchlist:\n  - symbol: \"bad symbol!\"\n"))
	assert.Error(t, err)

	t.Setenv("ATTEMPT_TIMEOUT", "soon")
	_, err = Load(writeConfig(t, ""))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"rest without base url", func(c *Config) { c.DataSource.Provider = "rest" }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without url", func(c *Config) { c.Cache.Backend = "redis" }},
		{"telegram token only", func(c *Config) { c.Telegram.BotToken = "t" }},
		{"negative ttl", func(c *Config) { c.Cache.LatestTTL = -time.Second }},
		{"bad analysis period", func(c *Config) { c.Query.AnalysisPeriod = "2y" }},
		{"missing fraction above one", func(c *Config) { f := 1.5; c.Query.MaxMissingFraction = &f }},
		{"negative closure days", func(c *Config) { n := -1; c.Query.MaxClosureDays = &n }},
		{"momentum fraction above one", func(c *Config) { c.Query.MomentumFraction = 2 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
