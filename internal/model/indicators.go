package model

import "github.com/shopspring/decimal"

// Direction is the sign of a trend.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// TrendResult describes the move from the first to the last observation of a window.
type TrendResult struct {
	Direction      Direction        `json:"direction" msgpack:"direction"`
	PercentChange  decimal.Decimal  `json:"percentChange" msgpack:"percent_change"`
	AbsoluteChange decimal.Decimal  `json:"absoluteChange" msgpack:"absolute_change"`
	SampleCount    int              `json:"sampleCount" msgpack:"sample_count"`
	First          PriceObservation `json:"-" msgpack:"first"`
	Last           PriceObservation `json:"-" msgpack:"last"`
}

// AnalysisResult holds indicators derived from a window.
// MovingAverages only contains windows that had enough samples.
type AnalysisResult struct {
	MovingAverages map[int]decimal.Decimal `json:"movingAverages" msgpack:"moving_averages"`
	// Volatility is 0 below three samples.
	Volatility     decimal.Decimal         `json:"volatility" msgpack:"volatility"`
	Momentum       decimal.Decimal         `json:"momentum" msgpack:"momentum"`
	RSI            *decimal.Decimal        `json:"rsi,omitempty" msgpack:"rsi"`
	High           decimal.Decimal         `json:"high" msgpack:"high"`
	Low            decimal.Decimal         `json:"low" msgpack:"low"`
	SampleCount    int                     `json:"sampleCount" msgpack:"sample_count"`
}

// Clone returns a copy that shares no mutable state with a.
func (a AnalysisResult) Clone() AnalysisResult {
	out := a
	out.MovingAverages = make(map[int]decimal.Decimal, len(a.MovingAverages))
	for k, v := range a.MovingAverages {
		out.MovingAverages[k] = v
	}
	if a.RSI != nil {
		rsi := *a.RSI
		out.RSI = &rsi
	}
	return out
}
