package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// DateLayout is the calendar-date format used in weekly snapshots.
const DateLayout = "2006-01-02"

// WeeklyStats holds the Friday-to-Friday comparison for one symbol.
type WeeklyStats struct {
	ThisFriday    time.Time
	LastFriday    time.Time
	Close         decimal.Decimal
	LastWeekClose decimal.Decimal
	ChangeRate    decimal.Decimal // percent, rounded to 2 places
	WeekHigh      decimal.Decimal
	WeekLow       decimal.Decimal
}

// FridaysBefore returns the most recent Friday on or before now and the Friday a week earlier.
func FridaysBefore(now time.Time) (thisFriday, lastFriday time.Time) {
	day := truncateDay(now)
	back := (int(day.Weekday()) - int(time.Friday) + 7) % 7
	thisFriday = day.AddDate(0, 0, -back)
	return thisFriday, thisFriday.AddDate(0, 0, -7)
}

// ClosestTradingDay returns the last observation dated on or before target.
func ClosestTradingDay(series model.TimeSeries, target time.Time) (model.PriceObservation, bool) {
	target = truncateDay(target)
	for i := series.Len() - 1; i >= 0; i-- {
		if !truncateDay(series.Points[i].Time).After(target) {
			return series.Points[i], true
		}
	}
	return model.PriceObservation{}, false
}

// ComputeWeeklyStats compares this Friday's close (or the closest prior
// trading day) to last Friday's and scans the five days ending this Friday
// for the weekly high and low. A week with no trading day reports the
// carried-forward close as both high and low.
func ComputeWeeklyStats(series model.TimeSeries, now time.Time) (WeeklyStats, error) {
	thisFriday, lastFriday := FridaysBefore(now)
	cur, ok := ClosestTradingDay(series, thisFriday)
	if !ok {
		return WeeklyStats{}, apperr.Insufficient("weekly stats for "+series.Symbol.String(), 2, series.Len())
	}
	prev, ok := ClosestTradingDay(series, lastFriday)
	if !ok {
		return WeeklyStats{}, apperr.Insufficient("weekly stats for "+series.Symbol.String(), 2, series.Len())
	}

	stats := WeeklyStats{
		ThisFriday:    thisFriday,
		LastFriday:    lastFriday,
		Close:         cur.Price,
		LastWeekClose: prev.Price,
		ChangeRate:    percentChange(prev.Price, cur.Price).Round(2),
	}

	weekStart := thisFriday.AddDate(0, 0, -4)
	seen := false
	for _, p := range series.Points {
		d := truncateDay(p.Time)
		if d.Before(weekStart) || d.After(thisFriday) {
			continue
		}
		if !seen || p.Price.GreaterThan(stats.WeekHigh) {
			stats.WeekHigh = p.Price
		}
		if !seen || p.Price.LessThan(stats.WeekLow) {
			stats.WeekLow = p.Price
		}
		seen = true
	}
	if !seen {
		stats.WeekHigh, stats.WeekLow = cur.Price, cur.Price
	}
	return stats, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
