package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Interval is the bar granularity requested from a provider.
type Interval string

const (
	Interval5m  Interval = "5m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
)

// PriceObservation is a single timestamped price point.
type PriceObservation struct {
	Time   time.Time
	Price  decimal.Decimal
	Volume *int64 // nil when the provider does not report volume
}

// Range is a concrete half-open time range [Start, End) at a given bar granularity.
type Range struct {
	Start    time.Time
	End      time.Time
	Interval Interval
}

// TimeSeries is an ordered, duplicate-free run of observations for one symbol.
// Points are strictly increasing by Time. Stages after normalization never
// modify Points in place.
type TimeSeries struct {
	Symbol   Symbol
	Interval Interval
	Points   []PriceObservation
}

// Len returns the number of observations.
func (s TimeSeries) Len() int { return len(s.Points) }

// First returns the oldest observation. The series must not be empty.
func (s TimeSeries) First() PriceObservation { return s.Points[0] }

// Last returns the newest observation. The series must not be empty.
func (s TimeSeries) Last() PriceObservation { return s.Points[len(s.Points)-1] }

// Prices returns the price column.
func (s TimeSeries) Prices() []decimal.Decimal {
	prices := make([]decimal.Decimal, len(s.Points))
	for i, p := range s.Points {
		prices[i] = p.Price
	}
	return prices
}

// Quote is the latest price payload for a symbol.
type Quote struct {
	Symbol Symbol          `json:"symbol" msgpack:"symbol"`
	Price  decimal.Decimal `json:"price" msgpack:"price"`
	AsOf   time.Time       `json:"asOf" msgpack:"as_of"`
	// Stale marks a last known quote served while the source is failing.
	Stale bool `json:"stale,omitempty" msgpack:"stale,omitempty"`
}

// RequestKind identifies which query produced a cached value.
type RequestKind string

const (
	KindLatest   RequestKind = "latest"
	KindTrend    RequestKind = "trend"
	KindAnalysis RequestKind = "analysis"
)
