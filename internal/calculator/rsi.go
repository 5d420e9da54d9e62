package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
)

var hundred = decimal.NewFromInt(100)

// CalculateRSI computes the Wilder-smoothed RSI over the given period.
// Requires at least period+1 prices.
func CalculateRSI(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.New("period must be positive")
	}
	if len(prices) < period+1 {
		return decimal.Zero, apperr.Insufficient("RSI", period+1, len(prices))
	}

	n := decimal.NewFromInt(int64(period))
	nMinus1 := decimal.NewFromInt(int64(period - 1))

	// Initial average gain/loss over the first `period` changes
	avgGain, avgLoss := decimal.Zero, decimal.Zero
	for i := 1; i <= period; i++ {
		change := prices[i].Sub(prices[i-1])
		if change.IsPositive() {
			avgGain = avgGain.Add(change)
		} else {
			avgLoss = avgLoss.Sub(change)
		}
	}
	avgGain = avgGain.Div(n)
	avgLoss = avgLoss.Div(n)

	// Wilder smoothing for remaining prices
	for i := period + 1; i < len(prices); i++ {
		change := prices[i].Sub(prices[i-1])
		gain, loss := decimal.Zero, decimal.Zero
		if change.IsPositive() {
			gain = change
		} else {
			loss = change.Neg()
		}
		avgGain = avgGain.Mul(nMinus1).Add(gain).Div(n)
		avgLoss = avgLoss.Mul(nMinus1).Add(loss).Div(n)
	}

	if avgLoss.IsZero() {
		return hundred, nil
	}
	rs := avgGain.Div(avgLoss)
	rsi := hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
	return rsi.Round(4), nil
}
