package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// CalculateSMA computes the simple moving average of the trailing period prices.
func CalculateSMA(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.New("period must be positive")
	}
	if len(prices) < period {
		return decimal.Zero, apperr.Insufficient("SMA", period, len(prices))
	}
	sum := decimal.Zero
	for i := len(prices) - period; i < len(prices); i++ {
		sum = sum.Add(prices[i])
	}
	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// MovingAverages computes an SMA for every window that fits in the series.
// Windows larger than the sample count, or not positive, are left out.
func MovingAverages(series model.TimeSeries, windows []int) map[int]decimal.Decimal {
	prices := series.Prices()
	out := make(map[int]decimal.Decimal, len(windows))
	for _, w := range windows {
		if ma, err := CalculateSMA(prices, w); err == nil {
			out[w] = ma
		}
	}
	return out
}

// NormalizeWindows sorts and de-duplicates window sizes and rejects non-positive ones.
func NormalizeWindows(windows []int) ([]int, error) {
	seen := make(map[int]struct{}, len(windows))
	out := make([]int, 0, len(windows))
	for _, w := range windows {
		if w <= 0 {
			return nil, fmt.Errorf("%w: moving average window %d must be positive", apperr.ErrInvalidInput, w)
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Ints(out)
	return out, nil
}
