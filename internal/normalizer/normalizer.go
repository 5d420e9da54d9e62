// Package normalizer turns raw provider observations into a canonical TimeSeries.
package normalizer

import (
	"sort"
	"time"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// DefaultMaxMissingFraction is the share of expected samples allowed to be absent.
const DefaultMaxMissingFraction = 0.10

// DefaultMaxClosureDays covers the longest routine exchange closures, such
// as Golden Week, Seollal, Chuseok and the Japanese New Year.
const DefaultMaxClosureDays = 4

// Policy controls the sanity checks applied during normalization.
type Policy struct {
	// MaxMissingFraction rejects a series when more than this share of the
	// expected samples is missing. Zero disables the check.
	MaxMissingFraction float64
	// MaxClosureDays is the longest run of absent weekdays in a daily series
	// taken as an exchange holiday rather than missing data.
	MaxClosureDays int
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{MaxMissingFraction: DefaultMaxMissingFraction, MaxClosureDays: DefaultMaxClosureDays}
}

// Normalize sorts raw observations, collapses duplicate timestamps (the
// latest-seen value wins) and validates prices, volumes and density.
// The input slice is not modified.
func Normalize(symbol model.Symbol, interval model.Interval, raw []model.PriceObservation, policy Policy) (model.TimeSeries, error) {
	series := model.TimeSeries{Symbol: symbol, Interval: interval}
	if len(raw) == 0 {
		return series, nil
	}

	obs := make([]model.PriceObservation, len(raw))
	for i, o := range raw {
		if o.Time.IsZero() {
			return model.TimeSeries{}, apperr.Malformed("%s: observation %d has no timestamp", symbol, i)
		}
		if !o.Price.IsPositive() {
			return model.TimeSeries{}, apperr.Malformed("%s: price %s at %s is not positive", symbol, o.Price, o.Time.UTC().Format(time.RFC3339))
		}
		if o.Volume != nil && *o.Volume < 0 {
			return model.TimeSeries{}, apperr.Malformed("%s: negative volume %d at %s", symbol, *o.Volume, o.Time.UTC().Format(time.RFC3339))
		}
		o.Time = o.Time.UTC()
		obs[i] = o
	}

	// Stable sort keeps input order among equal timestamps, so the last
	// element of each run is the latest-seen value.
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Time.Before(obs[j].Time) })

	points := make([]model.PriceObservation, 0, len(obs))
	for _, o := range obs {
		if n := len(points); n > 0 && points[n-1].Time.Equal(o.Time) {
			points[n-1] = o
			continue
		}
		points = append(points, o)
	}

	if policy.MaxMissingFraction > 0 {
		missing, expected := MissingSamples(interval, points, policy.MaxClosureDays)
		if expected > 0 && float64(missing)/float64(expected) > policy.MaxMissingFraction {
			return model.TimeSeries{}, apperr.Malformed("%s: %d of %d expected %s samples missing", symbol, missing, expected, interval)
		}
	}

	series.Points = points
	return series, nil
}

// ExpectedSamples returns how many bars a complete series between first and
// last (inclusive) would hold. Daily bars count weekdays, weekly bars count
// weeks. Intraday intervals have no fixed session calendar and return 0.
func ExpectedSamples(interval model.Interval, first, last time.Time) int {
	switch interval {
	case model.Interval1d:
		return weekdaysBetween(first, last)
	case model.Interval1wk:
		return int(truncateDay(last).Sub(truncateDay(first)).Hours()/(24*7)) + 1
	default:
		return 0
	}
}

// MissingSamples counts the bars absent from a sorted, de-duplicated series
// against ExpectedSamples. For daily bars a run of up to maxClosureDays
// consecutive absent weekdays is an exchange holiday and is not counted.
func MissingSamples(interval model.Interval, points []model.PriceObservation, maxClosureDays int) (missing, expected int) {
	if len(points) == 0 {
		return 0, 0
	}
	first, last := points[0].Time, points[len(points)-1].Time
	if interval != model.Interval1d {
		expected = ExpectedSamples(interval, first, last)
		if missing = expected - len(points); missing < 0 {
			missing = 0
		}
		return missing, expected
	}

	present := make(map[time.Time]struct{}, len(points))
	for _, p := range points {
		present[truncateDay(p.Time)] = struct{}{}
	}
	run := 0
	closeRun := func() {
		if run > maxClosureDays {
			missing += run
		}
		run = 0
	}
	for d := truncateDay(first); !d.After(truncateDay(last)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		expected++
		if _, ok := present[d]; ok {
			closeRun()
			continue
		}
		run++
	}
	closeRun()
	return missing, expected
}

func weekdaysBetween(first, last time.Time) int {
	start := truncateDay(first)
	end := truncateDay(last)
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
