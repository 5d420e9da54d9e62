package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeeklyStockPrice/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snap(symbol, friday, rate string) model.WeeklySnapshot {
	return model.WeeklySnapshot{
		Symbol:        model.Symbol(symbol),
		Name:          symbol + " Inc.",
		ThisFriday:    friday,
		LastFriday:    "2024-05-03",
		Close:         dec("110.25"),
		LastWeekClose: dec("100"),
		ChangeRate:    dec(rate),
		WeekHigh:      dec("111"),
		WeekLow:       dec("99.5"),
		Source:        "yahoo",
		RunID:         "run-1",
		CollectedAt:   time.Date(2024, 5, 11, 9, 0, 0, 0, time.UTC),
	}
}

func TestObservations(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t)

	base := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	vol := int64(1200)
	obs := []model.PriceObservation{
		{Time: base, Price: dec("100.5"), Volume: &vol},
		{Time: base.AddDate(0, 0, 1), Price: dec("101.25")},
		{Time: base.AddDate(0, 0, 2), Price: dec("99.75")},
	}
	require.NoError(t, r.RecordObservations(ctx, "AAPL", model.Interval1d, obs))
	// Re-recording a bar replaces it.
	require.NoError(t, r.RecordObservations(ctx, "AAPL", model.Interval1d, []model.PriceObservation{
		{Time: base.AddDate(0, 0, 2), Price: dec("98")},
	}))

	got, err := r.LoadObservations(ctx, "AAPL", model.Interval1d, base, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, got, 2, "end is exclusive")
	assert.True(t, got[0].Time.Equal(base))
	assert.True(t, got[0].Price.Equal(dec("100.5")))
	require.NotNil(t, got[0].Volume)
	assert.Equal(t, vol, *got[0].Volume)
	assert.Nil(t, got[1].Volume)

	latest, ok, err := r.LatestObservation(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Price.Equal(dec("98")))

	_, ok, err = r.LatestObservation(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := r.LoadObservations(ctx, "AAPL", model.Interval1wk, base, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestWeeklyRankings(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t)

	require.NoError(t, r.RecordWeekly(ctx, []model.WeeklySnapshot{
		snap("AAPL", "2024-05-03", "-9"), // superseded by the next week
		snap("AAPL", "2024-05-10", "10.25"),
		snap("MSFT", "2024-05-10", "3.5"),
		snap("TSLA", "2024-05-10", "-4.75"),
		snap("NVDA", "2024-05-10", "-1"),
		snap("KO", "2024-05-10", "0"),
	}))

	latest, err := r.LatestWeekly(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 5)
	assert.Equal(t, model.Symbol("AAPL"), latest[0].Symbol)
	assert.Equal(t, "2024-05-10", latest[0].ThisFriday)
	assert.True(t, latest[0].Close.Equal(dec("110.25")))
	assert.Equal(t, "AAPL Inc.", latest[0].Name)
	assert.True(t, latest[0].CollectedAt.Equal(time.Date(2024, 5, 11, 9, 0, 0, 0, time.UTC)))

	gainers, err := r.TopGainers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, gainers, 2)
	assert.Equal(t, model.Symbol("AAPL"), gainers[0].Symbol)
	assert.Equal(t, model.Symbol("MSFT"), gainers[1].Symbol)

	top1, err := r.TopGainers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top1, 1)

	losers, err := r.TopLosers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, losers, 2)
	assert.Equal(t, model.Symbol("TSLA"), losers[0].Symbol)
	assert.Equal(t, model.Symbol("NVDA"), losers[1].Symbol)

	stats, err := r.MarketStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalCompanies)
	assert.Equal(t, 2, stats.PositiveChange)
	assert.Equal(t, 2, stats.NegativeChange)
	assert.Equal(t, 1, stats.Unchanged)
	assert.True(t, stats.MaxChangeRate.Equal(dec("10.25")), stats.MaxChangeRate.String())
	assert.True(t, stats.MinChangeRate.Equal(dec("-4.75")), stats.MinChangeRate.String())
	assert.True(t, stats.AverageChangeRate.Equal(dec("1.6")), stats.AverageChangeRate.String())
}

func TestComputeMarketStatsEmpty(t *testing.T) {
	stats := ComputeMarketStats(nil)
	assert.Zero(t, stats.TotalCompanies)
	assert.True(t, stats.AverageChangeRate.IsZero())
}

func TestNoopRecorder(t *testing.T) {
	ctx := context.Background()
	var r Recorder = NewNoopRecorder()
	require.NoError(t, r.RecordWeekly(ctx, []model.WeeklySnapshot{snap("AAPL", "2024-05-10", "1")}))
	got, err := r.TopGainers(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	_, ok, err := r.LatestObservation(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, r.Close())
}
