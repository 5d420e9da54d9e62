// Package recorder persists collected price observations and weekly
// snapshots, and answers the weekly ranking queries.
package recorder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/model"
)

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordObservations(ctx context.Context, symbol model.Symbol, interval model.Interval, obs []model.PriceObservation) error
	RecordWeekly(ctx context.Context, snaps []model.WeeklySnapshot) error

	LoadObservations(ctx context.Context, symbol model.Symbol, interval model.Interval, start, end time.Time) ([]model.PriceObservation, error)
	LatestObservation(ctx context.Context, symbol model.Symbol) (model.PriceObservation, bool, error)

	// LatestWeekly returns the most recent snapshot of every symbol, by symbol.
	LatestWeekly(ctx context.Context) ([]model.WeeklySnapshot, error)
	TopGainers(ctx context.Context, limit int) ([]model.WeeklySnapshot, error)
	TopLosers(ctx context.Context, limit int) ([]model.WeeklySnapshot, error)
	MarketStats(ctx context.Context) (model.MarketStats, error)

	Close() error
}

// ComputeMarketStats summarizes a set of snapshots. Rates are rounded to two
// decimals.
func ComputeMarketStats(snaps []model.WeeklySnapshot) model.MarketStats {
	stats := model.MarketStats{TotalCompanies: len(snaps)}
	if len(snaps) == 0 {
		return stats
	}
	sum := decimal.Zero
	maxRate, minRate := snaps[0].ChangeRate, snaps[0].ChangeRate
	for _, s := range snaps {
		switch s.ChangeRate.Sign() {
		case 1:
			stats.PositiveChange++
		case -1:
			stats.NegativeChange++
		default:
			stats.Unchanged++
		}
		sum = sum.Add(s.ChangeRate)
		maxRate = decimal.Max(maxRate, s.ChangeRate)
		minRate = decimal.Min(minRate, s.ChangeRate)
	}
	stats.AverageChangeRate = sum.Div(decimal.NewFromInt(int64(len(snaps)))).Round(2)
	stats.MaxChangeRate = maxRate.Round(2)
	stats.MinChangeRate = minRate.Round(2)
	return stats
}
