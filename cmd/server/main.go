package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/api"
	"WeeklyStockPrice/internal/cache"
	"WeeklyStockPrice/internal/calculator"
	"WeeklyStockPrice/internal/collector"
	"WeeklyStockPrice/internal/config"
	"WeeklyStockPrice/internal/model"
	"WeeklyStockPrice/internal/normalizer"
	"WeeklyStockPrice/internal/notifier"
	"WeeklyStockPrice/internal/query"
	"WeeklyStockPrice/internal/recorder"
	"WeeklyStockPrice/internal/scheduler"
	"WeeklyStockPrice/internal/window"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("load .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	setupLogging(cfg)
	log.Info().Str("config", cfgPath).Msg("WeeklyStockPrice starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := window.SystemClock{}

	// Init recorder
	var rec recorder.Recorder
	var store *recorder.SQLiteRecorder
	if cfg.Database.SQLitePath != "" {
		store, err = recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil && cfg.DataSource.Provider == "store" {
			log.Fatal().Err(err).Msg("init sqlite recorder")
		}
	}
	if store != nil {
		rec = store
	} else {
		log.Warn().Err(err).Msg("sqlite recorder unavailable, using noop")
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Init fetcher
	fetcher := newFetcher(cfg, store, clock)
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")

	// Init cache
	var backend cache.Backend
	switch cfg.Cache.Backend {
	case "redis":
		backend, err = cache.NewRedisBackend(ctx, cfg.Cache.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("init redis cache")
		}
	default:
		backend = cache.NewMemoryBackend(cfg.Cache.CleanupInterval)
	}
	defer backend.Close()

	svc := query.NewService(
		fetcher,
		cache.NewLoader(backend, clock),
		window.NewWindower(clock, cfg.Query.MinSamples),
		queryConfig(cfg),
	)
	if cfg.DataSource.FallbackFile != "" {
		fb, err := collector.NewFallbackQuotes(cfg.DataSource.FallbackFile)
		if err != nil {
			log.Fatal().Err(err).Msg("init fallback quotes")
		}
		svc.WithFallback(fb)
	}

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var n scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, svc, rec, n, cfg.Watchlist, clock)
	if err := sched.RegisterAll(cfg.Schedule.WeeklyCron, cfg.Schedule.WarmupCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing weekly task now")
		go sched.RunWeeklyNow()
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(svc, rec, cfg.Watchlist, api.Options{
			RateLimit: cfg.Server.RateLimit,
			RateBurst: cfg.Server.RateBurst,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	cancel()
	log.Info().Msg("WeeklyStockPrice stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
}

func newFetcher(cfg *config.Config, store *recorder.SQLiteRecorder, clock window.Clock) collector.Fetcher {
	opts := collector.HTTPOptions{
		BaseURL:       cfg.DataSource.BaseURL,
		APIKey:        cfg.DataSource.APIKey,
		Proxy:         cfg.Proxy,
		Timeout:       cfg.DataSource.Timeout,
		RatePerSecond: cfg.DataSource.RatePerSecond,
	}

	switch cfg.DataSource.Provider {
	case "rest":
		return collector.NewRESTFetcher(opts)
	case "store":
		return collector.NewStoreFetcher(store)
	case "mock":
		return collector.NewMockFetcher(100, clock.Now)
	default:
		return collector.NewYahooFetcher(opts)
	}
}

func queryConfig(cfg *config.Config) query.Config {
	qc := query.DefaultConfig()
	qc.LatestTTL = cfg.Cache.LatestTTL
	qc.HistoryTTL = cfg.Cache.HistoryTTL
	qc.AttemptTimeout = cfg.Query.AttemptTimeout
	qc.MaxRetries = uint64(cfg.Query.MaxRetries)
	qc.InitialBackoff = cfg.Query.InitialBackoff
	qc.AnalysisPeriod, _ = model.ParsePeriod(cfg.Query.AnalysisPeriod)
	qc.Normalize = normalizer.Policy{
		MaxMissingFraction: *cfg.Query.MaxMissingFraction,
		MaxClosureDays:     *cfg.Query.MaxClosureDays,
	}
	qc.Indicators = calculator.Config{
		Epsilon:            decimal.NewFromFloat(cfg.Query.TrendEpsilon),
		MomentumFraction:   cfg.Query.MomentumFraction,
		MomentumMinSamples: 2,
		RSIPeriod:          cfg.Query.RSIPeriod,
	}
	return qc
}
