// Package query answers latest, trend and analysis requests by running the
// fetch, normalize, window and compute stages behind a shared cache.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/cache"
	"WeeklyStockPrice/internal/calculator"
	"WeeklyStockPrice/internal/collector"
	"WeeklyStockPrice/internal/model"
	"WeeklyStockPrice/internal/normalizer"
	"WeeklyStockPrice/internal/window"
)

// DefaultWindows is used when an analysis request names no windows.
var DefaultWindows = []int{5, 20, 50}

// Config tunes caching, retries and indicators.
type Config struct {
	LatestTTL      time.Duration
	HistoryTTL     time.Duration
	AttemptTimeout time.Duration
	MaxRetries     uint64
	InitialBackoff time.Duration
	AnalysisPeriod model.Period
	Indicators     calculator.Config
	Normalize      normalizer.Policy
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		LatestTTL:      30 * time.Second,
		HistoryTTL:     5 * time.Minute,
		AttemptTimeout: 5 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 100 * time.Millisecond,
		AnalysisPeriod: model.Period1Y,
		Indicators:     calculator.DefaultConfig(),
		Normalize:      normalizer.DefaultPolicy(),
	}
}

// QuoteFallback supplies last known quotes once live fetching has failed.
type QuoteFallback interface {
	Quote(symbol model.Symbol) (model.PriceObservation, bool)
}

// Service is the query facade. It is safe for concurrent use.
type Service struct {
	fetcher  collector.Fetcher
	loader   *cache.Loader
	windower *window.Windower
	fallback QuoteFallback
	cfg      Config
}

// NewService wires a Service.
func NewService(fetcher collector.Fetcher, loader *cache.Loader, windower *window.Windower, cfg Config) *Service {
	return &Service{fetcher: fetcher, loader: loader, windower: windower, cfg: cfg}
}

// WithFallback sets the source of last known quotes for Latest. It must be
// called before the Service is shared.
func (s *Service) WithFallback(fb QuoteFallback) *Service {
	s.fallback = fb
	return s
}

// Latest returns the current quote for symbol. When the source keeps failing
// after every retry and a fallback holds a quote for symbol, that quote is
// returned marked stale. Stale quotes are never cached.
func (s *Service) Latest(ctx context.Context, symbol model.Symbol) (model.Quote, error) {
	key := cache.Key{Symbol: symbol, Kind: model.KindLatest}
	e, err := s.loader.Load(ctx, key, s.cfg.LatestTTL, func(ctx context.Context) (cache.Entry, error) {
		var obs model.PriceObservation
		err := s.retry(ctx, "latest", symbol, func(ctx context.Context) error {
			var err error
			obs, err = s.fetcher.FetchLatest(ctx, symbol)
			return err
		})
		if err != nil {
			return cache.Entry{}, err
		}
		// A single observation goes through the same sanity rules as a series.
		if _, err := normalizer.Normalize(symbol, "", []model.PriceObservation{obs}, normalizer.Policy{}); err != nil {
			s.logMalformed(symbol, err)
			return cache.Entry{}, err
		}
		return cache.Entry{
			Kind:  model.KindLatest,
			Quote: &model.Quote{Symbol: symbol, Price: obs.Price, AsOf: obs.Time.UTC()},
		}, nil
	})
	if err != nil {
		if q, ok := s.fallbackQuote(symbol, err); ok {
			return q, nil
		}
		return model.Quote{}, err
	}
	return *e.Quote, nil
}

func (s *Service) fallbackQuote(symbol model.Symbol, err error) (model.Quote, bool) {
	if s.fallback == nil || !errors.Is(err, apperr.ErrProvider) {
		return model.Quote{}, false
	}
	obs, ok := s.fallback.Quote(symbol)
	if !ok {
		return model.Quote{}, false
	}
	log.Warn().Err(err).Str("symbol", symbol.String()).Time("as_of", obs.Time).Msg("source unavailable, serving last known quote")
	return model.Quote{Symbol: symbol, Price: obs.Price, AsOf: obs.Time.UTC(), Stale: true}, true
}

// Trend returns the trend of symbol over period.
func (s *Service) Trend(ctx context.Context, symbol model.Symbol, period model.Period) (model.TrendResult, error) {
	key := cache.Key{Symbol: symbol, Kind: model.KindTrend, Period: period}
	e, err := s.loader.Load(ctx, key, s.cfg.HistoryTTL, func(ctx context.Context) (cache.Entry, error) {
		series, err := s.Series(ctx, symbol, period)
		if err != nil {
			return cache.Entry{}, err
		}
		trend, err := calculator.ComputeTrend(series, s.cfg.Indicators.Epsilon)
		if err != nil {
			return cache.Entry{}, err
		}
		return cache.Entry{Kind: model.KindTrend, Trend: &trend}, nil
	})
	if err != nil {
		return model.TrendResult{}, err
	}
	return *e.Trend, nil
}

// Analysis returns indicators for symbol over period. An empty period uses
// the configured analysis period and empty windows use DefaultWindows.
// Windows are validated before any fetch.
func (s *Service) Analysis(ctx context.Context, symbol model.Symbol, period model.Period, windows []int) (model.AnalysisResult, error) {
	if period == "" {
		period = s.cfg.AnalysisPeriod
	}
	if len(windows) == 0 {
		windows = DefaultWindows
	}
	windows, err := calculator.NormalizeWindows(windows)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	key := cache.Key{Symbol: symbol, Kind: model.KindAnalysis, Period: period, Windows: windows}
	e, err := s.loader.Load(ctx, key, s.cfg.HistoryTTL, func(ctx context.Context) (cache.Entry, error) {
		series, err := s.Series(ctx, symbol, period)
		if err != nil {
			return cache.Entry{}, err
		}
		res := calculator.ComputeAnalysis(series, windows, s.cfg.Indicators)
		return cache.Entry{Kind: model.KindAnalysis, Analysis: &res}, nil
	})
	if err != nil {
		return model.AnalysisResult{}, err
	}
	return *e.Analysis, nil
}

// Series fetches, normalizes and windows symbol's history for period. It
// bypasses the cache.
func (s *Service) Series(ctx context.Context, symbol model.Symbol, period model.Period) (model.TimeSeries, error) {
	rng, err := s.windower.Range(period)
	if err != nil {
		return model.TimeSeries{}, err
	}
	started := time.Now()

	var raw []model.PriceObservation
	err = s.retry(ctx, "history", symbol, func(ctx context.Context) error {
		var err error
		raw, err = s.fetcher.FetchHistory(ctx, symbol, rng)
		return err
	})
	if err != nil {
		return model.TimeSeries{}, err
	}

	series, err := normalizer.Normalize(symbol, rng.Interval, raw, s.cfg.Normalize)
	if err != nil {
		s.logMalformed(symbol, err)
		return model.TimeSeries{}, err
	}
	sliced, err := s.windower.Apply(series, rng)
	if err != nil {
		return model.TimeSeries{}, err
	}
	log.Debug().
		Str("symbol", symbol.String()).
		Str("period", string(period)).
		Int("raw", len(raw)).
		Int("samples", sliced.Len()).
		Dur("elapsed", time.Since(started)).
		Msg("series loaded")
	return sliced, nil
}

// Invalidate drops every cached result for symbol.
func (s *Service) Invalidate(ctx context.Context, symbol model.Symbol) (int, error) {
	n, err := s.loader.Invalidate(ctx, cache.SymbolPrefix(symbol))
	if err != nil {
		return 0, err
	}
	log.Info().Str("symbol", symbol.String()).Int("entries", n).Msg("cache invalidated")
	return n, nil
}

// CacheStats reports loader counters.
func (s *Service) CacheStats() cache.Stats {
	return s.loader.Stats()
}

// Source names the underlying price source.
func (s *Service) Source() string {
	return s.fetcher.Name()
}

// retry runs call with a per-attempt deadline. Provider errors are retried
// with exponential backoff up to MaxRetries; everything else is returned
// after the first attempt.
func (s *Service) retry(ctx context.Context, op string, symbol model.Symbol, call func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	attempt := 0
	operation := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		defer cancel()

		err := call(actx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperr.ErrProvider) && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = apperr.Provider(s.fetcher.Name(), err)
		}
		if !errors.Is(err, apperr.ErrProvider) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Str("symbol", symbol.String()).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("provider call failed, retrying")
	}
	return backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.MaxRetries), ctx), notify)
}

func (s *Service) logMalformed(symbol model.Symbol, err error) {
	if errors.Is(err, apperr.ErrMalformedData) {
		log.Warn().Err(err).Str("symbol", symbol.String()).Str("source", s.fetcher.Name()).Msg("provider returned malformed data")
	}
}

// AnalysisPeriod is the period used when an analysis request names none.
func (s *Service) AnalysisPeriod() model.Period {
	return s.cfg.AnalysisPeriod
}
