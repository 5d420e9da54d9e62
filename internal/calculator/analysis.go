package calculator

import (
	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/model"
)

// Config holds the tunable indicator parameters.
type Config struct {
	Epsilon            decimal.Decimal
	MomentumFraction   float64
	MomentumMinSamples int
	RSIPeriod          int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Epsilon:            DefaultEpsilon,
		MomentumFraction:   0.2,
		MomentumMinSamples: 2,
		RSIPeriod:          14,
	}
}

// ComputeAnalysis derives every indicator from the series. Indicators that
// need more samples than available are omitted or reported as zero; the call
// itself never fails on a sparse series. Sample floors:
//
//   - Volatility needs 3 samples (two returns); below that it is 0.
//   - Momentum needs 2 samples; below that it is 0.
//   - A moving average needs as many samples as its window, else it is omitted.
//   - RSI needs RSIPeriod+1 samples, else it is nil.
//   - High and Low need 1 sample.
func ComputeAnalysis(series model.TimeSeries, windows []int, cfg Config) model.AnalysisResult {
	res := model.AnalysisResult{
		MovingAverages: MovingAverages(series, windows),
		Volatility:     Volatility(series),
		Momentum:       Momentum(series, cfg.MomentumFraction, cfg.MomentumMinSamples),
		SampleCount:    series.Len(),
	}
	if high, low, err := HighLow(series); err == nil {
		res.High, res.Low = high, low
	}
	if cfg.RSIPeriod > 0 {
		if rsi, err := CalculateRSI(series.Prices(), cfg.RSIPeriod); err == nil {
			res.RSI = &rsi
		}
	}
	return res
}
