package calculator

import (
	"math"

	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/model"
)

// Volatility is the sample standard deviation of period-over-period percent
// returns. Fewer than two returns have no spread and report zero.
func Volatility(series model.TimeSeries) decimal.Decimal {
	if series.Len() < 3 {
		return decimal.Zero
	}
	returns := make([]float64, 0, series.Len()-1)
	for i := 1; i < series.Len(); i++ {
		r := percentChange(series.Points[i-1].Price, series.Points[i].Price)
		returns = append(returns, r.InexactFloat64())
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	ss := 0.0
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	return decimal.NewFromFloat(std).Round(8)
}

// Momentum is the percent change over the trailing sub-window of
// ceil(fraction*n) samples, never fewer than minSamples (and at least 2).
// A series with fewer than 2 samples reports zero.
func Momentum(series model.TimeSeries, fraction float64, minSamples int) decimal.Decimal {
	n := series.Len()
	if n < 2 {
		return decimal.Zero
	}
	if minSamples < 2 {
		minSamples = 2
	}
	k := int(math.Ceil(fraction * float64(n)))
	if k < minSamples {
		k = minSamples
	}
	if k > n {
		k = n
	}
	return percentChange(series.Points[n-k].Price, series.Last().Price)
}
