package calculator

import (
	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// HighLow returns the highest and lowest price in the series.
func HighLow(series model.TimeSeries) (high, low decimal.Decimal, err error) {
	if series.Len() == 0 {
		return decimal.Zero, decimal.Zero, apperr.Insufficient("high/low", 1, 0)
	}
	high, low = series.First().Price, series.First().Price
	for _, p := range series.Points[1:] {
		if p.Price.GreaterThan(high) {
			high = p.Price
		}
		if p.Price.LessThan(low) {
			low = p.Price
		}
	}
	return high, low, nil
}

// Position returns where current sits within [low, high], clamped to 0..1.
// A flat range reports the midpoint.
func Position(current, high, low decimal.Decimal) decimal.Decimal {
	if !high.GreaterThan(low) {
		return decimal.NewFromFloat(0.5)
	}
	pos := current.Sub(low).Div(high.Sub(low))
	if pos.IsNegative() {
		return decimal.Zero
	}
	if pos.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return pos
}
