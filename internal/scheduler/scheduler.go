package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/calculator"
	"WeeklyStockPrice/internal/model"
	"WeeklyStockPrice/internal/notifier"
	"WeeklyStockPrice/internal/query"
	"WeeklyStockPrice/internal/recorder"
	"WeeklyStockPrice/internal/window"
)

// Notifier delivers reports. *notifier.TelegramNotifier satisfies it.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Query     *query.Service
	Recorder  recorder.Recorder
	Notifier  Notifier // nil disables notifications
	Watchlist []model.Company
	Clock     window.Clock
	Ctx       context.Context

	// Workers bounds concurrent symbol collection.
	Workers int
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, q *query.Service, rec recorder.Recorder, n Notifier, watchlist []model.Company, clock window.Clock) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Query:     q,
		Recorder:  rec,
		Notifier:  n,
		Watchlist: watchlist,
		Clock:     clock,
		Ctx:       ctx,
		Workers:   4,
	}
}

// RegisterAll registers the weekly collection and the cache warm-up.
// An empty warmupCron skips the warm-up.
func (s *Scheduler) RegisterAll(weeklyCron, warmupCron string) error {
	if _, err := s.Cron.AddFunc(weeklyCron, s.weeklyTask); err != nil {
		return fmt.Errorf("register weekly task: %w", err)
	}
	if warmupCron != "" {
		if _, err := s.Cron.AddFunc(warmupCron, func() { s.WarmUp(s.Ctx) }); err != nil {
			return fmt.Errorf("register warm-up task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunWeeklyNow executes the weekly task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunWeeklyNow() {
	s.weeklyTask()
}

// Failure is one symbol that could not be collected.
type Failure struct {
	Symbol model.Symbol
	Err    error
}

// Collection is the outcome of one weekly run.
type Collection struct {
	RunID      string
	ThisFriday string
	Snapshots  []model.WeeklySnapshot
	Failures   []Failure
}

// FailedSymbols lists the symbols that failed.
func (c Collection) FailedSymbols() []model.Symbol {
	out := make([]model.Symbol, len(c.Failures))
	for i, f := range c.Failures {
		out[i] = f.Symbol
	}
	return out
}

// ErrNothingCollected is returned when every symbol failed.
var ErrNothingCollected = errors.New("no symbol collected")

// CollectWeekly builds a snapshot for every watchlist symbol, stores the
// daily bars and the snapshots, and returns the run. Individual symbol
// failures are reported in the result, not as an error.
func (s *Scheduler) CollectWeekly(ctx context.Context) (Collection, error) {
	now := s.Clock.Now()
	thisFriday, _ := calculator.FridaysBefore(now)
	run := Collection{RunID: uuid.NewString(), ThisFriday: thisFriday.Format(calculator.DateLayout)}
	logger := log.With().Str("run_id", run.RunID).Logger()
	logger.Info().Int("symbols", len(s.Watchlist)).Str("friday", run.ThisFriday).Msg("weekly collection started")

	snaps := make([]*model.WeeklySnapshot, len(s.Watchlist))
	errs := make([]error, len(s.Watchlist))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Workers, 1))
	for i, c := range s.Watchlist {
		i, c := i, c
		g.Go(func() error {
			snap, err := s.collectOne(gctx, c, now)
			if err != nil {
				logger.Warn().Err(err).Str("symbol", c.Symbol.String()).Msg("collect failed")
				errs[i] = err
				return nil
			}
			snap.RunID = run.RunID
			snaps[i] = &snap
			return nil
		})
	}
	g.Wait()

	for i, snap := range snaps {
		if snap != nil {
			run.Snapshots = append(run.Snapshots, *snap)
			continue
		}
		run.Failures = append(run.Failures, Failure{Symbol: s.Watchlist[i].Symbol, Err: errs[i]})
	}
	if len(run.Snapshots) == 0 && len(s.Watchlist) > 0 {
		return run, fmt.Errorf("%w: %d failures", ErrNothingCollected, len(run.Failures))
	}
	if err := s.Recorder.RecordWeekly(ctx, run.Snapshots); err != nil {
		return run, fmt.Errorf("record weekly: %w", err)
	}
	logger.Info().Int("collected", len(run.Snapshots)).Int("failed", len(run.Failures)).Msg("weekly collection finished")
	return run, nil
}

func (s *Scheduler) collectOne(ctx context.Context, c model.Company, now time.Time) (model.WeeklySnapshot, error) {
	series, err := s.Query.Series(ctx, c.Symbol, model.Period1M)
	if err != nil {
		return model.WeeklySnapshot{}, err
	}
	if err := s.Recorder.RecordObservations(ctx, c.Symbol, series.Interval, series.Points); err != nil {
		return model.WeeklySnapshot{}, fmt.Errorf("record observations: %w", err)
	}
	stats, err := calculator.ComputeWeeklyStats(series, now)
	if err != nil {
		return model.WeeklySnapshot{}, err
	}
	return model.WeeklySnapshot{
		Symbol:        c.Symbol,
		Name:          c.Name,
		ThisFriday:    stats.ThisFriday.Format(calculator.DateLayout),
		LastFriday:    stats.LastFriday.Format(calculator.DateLayout),
		Close:         stats.Close,
		LastWeekClose: stats.LastWeekClose,
		ChangeRate:    stats.ChangeRate,
		WeekHigh:      stats.WeekHigh,
		WeekLow:       stats.WeekLow,
		Source:        s.Query.Source(),
		CollectedAt:   now,
	}, nil
}

func (s *Scheduler) weeklyTask() {
	log.Info().Msg("running weekly task")
	run, err := s.CollectWeekly(s.Ctx)
	if err != nil {
		log.Error().Err(err).Msg("weekly collect failed")
		s.trySend(fmt.Sprintf("❌ Weekly collection failed: %v", err))
		return
	}
	stats := recorder.ComputeMarketStats(run.Snapshots)
	s.trySend(notifier.FormatWeeklyReport(run.ThisFriday, run.Snapshots, stats, run.FailedSymbols()))
}

// WarmUp refreshes the latest quote and weekly trend of every watchlist symbol.
func (s *Scheduler) WarmUp(ctx context.Context) {
	warmed := 0
	for _, c := range s.Watchlist {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Query.Latest(ctx, c.Symbol); err != nil {
			log.Warn().Err(err).Str("symbol", c.Symbol.String()).Msg("warm-up latest failed")
			continue
		}
		if _, err := s.Query.Trend(ctx, c.Symbol, model.Period1W); err != nil {
			log.Warn().Err(err).Str("symbol", c.Symbol.String()).Msg("warm-up trend failed")
			continue
		}
		warmed++
	}
	log.Info().Int("warmed", warmed).Int("symbols", len(s.Watchlist)).Msg("cache warm-up finished")
}

const helpText = "Available commands:\n" +
	"• /price SYMBOL\n" +
	"• /trend SYMBOL [period]\n" +
	"• /top\n" +
	"• /weekly"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/price":
		if len(fields) < 2 {
			return "Usage: /price SYMBOL"
		}
		sym, err := model.ParseSymbol(fields[1])
		if err != nil {
			return replyError(err)
		}
		q, err := s.Query.Latest(ctx, sym)
		if err != nil {
			return replyError(err)
		}
		return notifier.FormatQuote(q)
	case "/trend":
		if len(fields) < 2 {
			return "Usage: /trend SYMBOL [period]"
		}
		sym, err := model.ParseSymbol(fields[1])
		if err != nil {
			return replyError(err)
		}
		period := model.Period1M
		if len(fields) > 2 {
			if period, err = model.ParsePeriod(fields[2]); err != nil {
				return replyError(err)
			}
		}
		t, err := s.Query.Trend(ctx, sym, period)
		if err != nil {
			return replyError(err)
		}
		return notifier.FormatTrend(sym, period, t)
	case "/top":
		gainers, err := s.Recorder.TopGainers(ctx, 5)
		if err != nil {
			return replyError(err)
		}
		losers, err := s.Recorder.TopLosers(ctx, 5)
		if err != nil {
			return replyError(err)
		}
		return notifier.FormatMovers("🔺 Top gainers", gainers) + "\n" + notifier.FormatMovers("🔻 Top losers", losers)
	case "/weekly":
		s.weeklyTask()
		return ""
	default:
		return helpText
	}
}

func replyError(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "❓ " + err.Error()
	case errors.Is(err, apperr.ErrInvalidInput):
		return "⚠️ " + err.Error()
	default:
		return "❌ " + err.Error()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification failed")
	}
}
