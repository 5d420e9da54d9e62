// Package calculator holds the pure trend and indicator computations. Every
// function is deterministic over its input series.
package calculator

import (
	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// DefaultEpsilon is the percent move below which a trend is flat (0.01%).
var DefaultEpsilon = decimal.NewFromFloat(0.01)

// ComputeTrend compares the last observation against the first.
func ComputeTrend(series model.TimeSeries, epsilon decimal.Decimal) (model.TrendResult, error) {
	if series.Len() < 2 {
		return model.TrendResult{}, apperr.Insufficient("trend for "+series.Symbol.String(), 2, series.Len())
	}
	first, last := series.First(), series.Last()
	abs := last.Price.Sub(first.Price)
	pct := percentChange(first.Price, last.Price)

	dir := model.DirectionFlat
	switch {
	case pct.GreaterThan(epsilon):
		dir = model.DirectionUp
	case pct.LessThan(epsilon.Neg()):
		dir = model.DirectionDown
	}

	return model.TrendResult{
		Direction:      dir,
		PercentChange:  pct,
		AbsoluteChange: abs,
		SampleCount:    series.Len(),
		First:          first,
		Last:           last,
	}, nil
}

// percentChange returns (to-from)/from*100. from must be non-zero.
func percentChange(from, to decimal.Decimal) decimal.Decimal {
	return to.Sub(from).Div(from).Mul(hundred)
}
