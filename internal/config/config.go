package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"WeeklyStockPrice/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr         string        `yaml:"addr"`
		RateLimit    float64       `yaml:"rate_limit"` // requests per second per client IP, 0 disables
		RateBurst    int           `yaml:"rate_burst"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider      string        `yaml:"provider"` // yahoo, rest, store or mock
		BaseURL       string        `yaml:"base_url"`
		APIKey        string        `yaml:"api_key"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		FallbackFile  string        `yaml:"fallback_file"`
	} `yaml:"data_source"`
	Cache struct {
		Backend         string        `yaml:"backend"` // memory or redis
		RedisURL        string        `yaml:"redis_url"`
		LatestTTL       time.Duration `yaml:"latest_ttl"`
		HistoryTTL      time.Duration `yaml:"history_ttl"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
	} `yaml:"cache"`
	Query struct {
		AttemptTimeout     time.Duration `yaml:"attempt_timeout"`
		MaxRetries         int           `yaml:"max_retries"`
		InitialBackoff     time.Duration `yaml:"initial_backoff"`
		AnalysisPeriod     string        `yaml:"analysis_period"`
		MinSamples         int           `yaml:"min_samples"`
		MaxMissingFraction *float64      `yaml:"max_missing_fraction"`
		MaxClosureDays     *int          `yaml:"max_closure_days"`
		TrendEpsilon       float64       `yaml:"trend_epsilon"`
		MomentumFraction   float64       `yaml:"momentum_fraction"`
		RSIPeriod          int           `yaml:"rsi_period"`
	} `yaml:"query"`
	Schedule struct {
		WeeklyCron string `yaml:"weekly_cron"`
		WarmupCron string `yaml:"warmup_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Watchlist []model.Company `yaml:"watchlist"`
	Proxy     string          `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	for i, c := range cfg.Watchlist {
		sym, err := model.ParseSymbol(string(c.Symbol))
		if err != nil {
			return nil, fmt.Errorf("watchlist[%d]: %w", i, err)
		}
		cfg.Watchlist[i].Symbol = sym
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"SERVER_ADDR":        &c.Server.Addr,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"DATA_BASE_URL":      &c.DataSource.BaseURL,
		"DATA_API_KEY":       &c.DataSource.APIKey,
		"FALLBACK_FILE":      &c.DataSource.FallbackFile,
		"CACHE_BACKEND":      &c.Cache.Backend,
		"REDIS_URL":          &c.Cache.RedisURL,
		"CRON_WEEKLY":        &c.Schedule.WeeklyCron,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"LOG_LEVEL":          &c.Log.Level,
		"HTTPS_PROXY":        &c.Proxy,
	}
	for env, dst := range strs {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"CACHE_LATEST_TTL":  &c.Cache.LatestTTL,
		"CACHE_HISTORY_TTL": &c.Cache.HistoryTTL,
		"ATTEMPT_TIMEOUT":   &c.Query.AttemptTimeout,
	}
	for env, dst := range durations {
		if v := os.Getenv(env); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.Server.RateLimit = f
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		c.Log.Pretty, _ = strconv.ParseBool(v)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 20
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 10 * time.Second
	}
	if c.DataSource.RatePerSecond == 0 {
		c.DataSource.RatePerSecond = 5
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.LatestTTL == 0 {
		c.Cache.LatestTTL = 30 * time.Second
	}
	if c.Cache.HistoryTTL == 0 {
		c.Cache.HistoryTTL = 5 * time.Minute
	}
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = 10 * time.Minute
	}
	if c.Query.AttemptTimeout == 0 {
		c.Query.AttemptTimeout = 5 * time.Second
	}
	if c.Query.MaxRetries == 0 {
		c.Query.MaxRetries = 2
	}
	if c.Query.InitialBackoff == 0 {
		c.Query.InitialBackoff = 100 * time.Millisecond
	}
	if c.Query.AnalysisPeriod == "" {
		c.Query.AnalysisPeriod = string(model.Period1Y)
	}
	if c.Query.MinSamples == 0 {
		c.Query.MinSamples = 1
	}
	if c.Query.MaxMissingFraction == nil {
		f := 0.10
		c.Query.MaxMissingFraction = &f
	}
	if c.Query.MaxClosureDays == nil {
		n := 4
		c.Query.MaxClosureDays = &n
	}
	if c.Query.TrendEpsilon == 0 {
		c.Query.TrendEpsilon = 0.01
	}
	if c.Query.MomentumFraction == 0 {
		c.Query.MomentumFraction = 0.2
	}
	if c.Query.RSIPeriod == 0 {
		c.Query.RSIPeriod = 14
	}
	if c.Schedule.WeeklyCron == "" {
		c.Schedule.WeeklyCron = "0 0 8 * * 6"
	}
	if c.Schedule.WarmupCron == "" {
		c.Schedule.WarmupCron = "0 */30 13-21 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/weekly_stock_price.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Watchlist) == 0 {
		c.Watchlist = DefaultWatchlist()
	}
}

// DefaultWatchlist is the game-industry watchlist collected when none is configured.
func DefaultWatchlist() []model.Company {
	return []model.Company{
		{Symbol: "EA", Name: "Electronic Arts", Country: "US", Market: "NASDAQ"},
		{Symbol: "RBLX", Name: "Roblox", Country: "US", Market: "NYSE"},
		{Symbol: "TTWO", Name: "Take-Two", Country: "US", Market: "NASDAQ"},
		{Symbol: "PLTK", Name: "Playtika", Country: "US", Market: "NASDAQ"},
		{Symbol: "7974.T", Name: "Nintendo", Country: "JP", Market: "TSE"},
		{Symbol: "9697.T", Name: "Capcom", Country: "JP", Market: "TSE"},
		{Symbol: "3659.T", Name: "Nexon", Country: "JP", Market: "TSE"},
		{Symbol: "0700.HK", Name: "Tencent", Country: "CN", Market: "HKEX"},
		{Symbol: "259960.KS", Name: "Krafton", Country: "KR", Market: "KRX"},
		{Symbol: "036570.KS", Name: "NCSoft", Country: "KR", Market: "KRX"},
		{Symbol: "CDR.WA", Name: "CD Projekt", Country: "EU", Market: "WSE"},
		{Symbol: "UBI.PA", Name: "Ubisoft", Country: "EU", Market: "Euronext"},
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "store", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, store, mock", c.DataSource.Provider)
	}
	if c.DataSource.Provider == "store" && c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required for the store provider")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, redis", c.Cache.Backend)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Cache.LatestTTL <= 0 || c.Cache.HistoryTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Query.AttemptTimeout <= 0 {
		return fmt.Errorf("query.attempt_timeout must be positive")
	}
	if c.Query.MaxRetries < 0 {
		return fmt.Errorf("query.max_retries must not be negative")
	}
	if _, err := model.ParsePeriod(c.Query.AnalysisPeriod); err != nil {
		return fmt.Errorf("query.analysis_period: %w", err)
	}
	if f := *c.Query.MaxMissingFraction; f < 0 || f > 1 {
		return fmt.Errorf("query.max_missing_fraction must be within [0, 1]")
	}
	if *c.Query.MaxClosureDays < 0 {
		return fmt.Errorf("query.max_closure_days must not be negative")
	}
	if c.Query.MomentumFraction <= 0 || c.Query.MomentumFraction > 1 {
		return fmt.Errorf("query.momentum_fraction must be within (0, 1]")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}
