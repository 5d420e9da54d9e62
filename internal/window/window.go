// Package window resolves symbolic periods into concrete ranges and slices
// series to them.
package window

import (
	"fmt"
	"sort"
	"time"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// Epoch is the start of the "all" period.
var Epoch = time.Unix(0, 0).UTC()

// Resolve maps a period to [start, end) relative to now. It is a pure function.
func Resolve(period model.Period, now time.Time) (start, end time.Time, err error) {
	end = now.UTC()
	switch period {
	case model.Period1D:
		start = end.Add(-24 * time.Hour)
	case model.Period1W:
		start = end.AddDate(0, 0, -7)
	case model.Period1M:
		start = end.AddDate(0, -1, 0)
	case model.Period3M:
		start = end.AddDate(0, -3, 0)
	case model.Period6M:
		start = end.AddDate(0, -6, 0)
	case model.Period1Y:
		start = end.AddDate(-1, 0, 0)
	case model.PeriodYTD:
		start = time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case model.PeriodAll:
		start = Epoch
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown period %q", apperr.ErrInvalidInput, period)
	}
	return start, end, nil
}

// Slice returns the observations with start <= t < end as a new series.
// An empty result is not an error.
func Slice(series model.TimeSeries, start, end time.Time) model.TimeSeries {
	out := model.TimeSeries{Symbol: series.Symbol, Interval: series.Interval}
	pts := series.Points
	lo := sort.Search(len(pts), func(i int) bool { return !pts[i].Time.Before(start) })
	hi := sort.Search(len(pts), func(i int) bool { return !pts[i].Time.Before(end) })
	if lo >= hi {
		return out
	}
	out.Points = make([]model.PriceObservation, hi-lo)
	copy(out.Points, pts[lo:hi])
	return out
}

// Windower resolves periods against an injected clock and enforces a minimum
// sample count on the sliced result.
type Windower struct {
	Clock      Clock
	MinSamples int
}

// NewWindower creates a Windower. minSamples below 1 is raised to 1.
func NewWindower(clock Clock, minSamples int) *Windower {
	if minSamples < 1 {
		minSamples = 1
	}
	return &Windower{Clock: clock, MinSamples: minSamples}
}

// Range resolves period to a fetch range at the period's granularity.
func (w *Windower) Range(period model.Period) (model.Range, error) {
	start, end, err := Resolve(period, w.Clock.Now())
	if err != nil {
		return model.Range{}, err
	}
	return model.Range{Start: start, End: end, Interval: period.Interval()}, nil
}

// Window slices series to period and checks the minimum sample policy.
func (w *Windower) Window(series model.TimeSeries, period model.Period) (model.TimeSeries, error) {
	rng, err := w.Range(period)
	if err != nil {
		return model.TimeSeries{}, err
	}
	return w.Apply(series, rng)
}

// Apply slices series to an already resolved range and checks the minimum
// sample policy. Use it when the same range drove the fetch.
func (w *Windower) Apply(series model.TimeSeries, rng model.Range) (model.TimeSeries, error) {
	sliced := Slice(series, rng.Start, rng.End)
	if sliced.Len() < w.MinSamples {
		what := fmt.Sprintf("window %s..%s for %s", rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339), series.Symbol)
		return sliced, apperr.Insufficient(what, w.MinSamples, sliced.Len())
	}
	return sliced, nil
}
