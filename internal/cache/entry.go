package cache

import (
	"strconv"
	"strings"
	"time"

	"WeeklyStockPrice/internal/model"
)

// Namespace is the key prefix for every cache entry.
const Namespace = "stockprice"

// Key identifies a cached query result.
type Key struct {
	Symbol  model.Symbol
	Kind    model.RequestKind
	Period  model.Period // empty for latest
	Windows []int        // analysis only, normalized by the caller
}

// String renders the key as namespace:symbol:kind:period:windows. The symbol
// comes first so one symbol's entries share a prefix.
func (k Key) String() string {
	period := string(k.Period)
	if period == "" {
		period = "-"
	}
	windows := "-"
	if len(k.Windows) > 0 {
		parts := make([]string, len(k.Windows))
		for i, w := range k.Windows {
			parts[i] = strconv.Itoa(w)
		}
		windows = strings.Join(parts, ",")
	}
	return strings.Join([]string{Namespace, string(k.Symbol), string(k.Kind), period, windows}, ":")
}

// SymbolPrefix is the prefix shared by every key of symbol.
func SymbolPrefix(symbol model.Symbol) string {
	return Namespace + ":" + string(symbol) + ":"
}

// Entry is a cached computation. Exactly one of Quote, Trend or Analysis is set.
type Entry struct {
	Kind       model.RequestKind     `msgpack:"kind"`
	Quote      *model.Quote          `msgpack:"quote,omitempty"`
	Trend      *model.TrendResult    `msgpack:"trend,omitempty"`
	Analysis   *model.AnalysisResult `msgpack:"analysis,omitempty"`
	ComputedAt time.Time             `msgpack:"computed_at"`
	TTL        time.Duration         `msgpack:"ttl"`
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ComputedAt.Add(e.TTL))
}

// Clone returns a deep copy so callers never share mutable state.
func (e Entry) Clone() Entry {
	out := e
	if e.Quote != nil {
		q := *e.Quote
		out.Quote = &q
	}
	if e.Trend != nil {
		t := *e.Trend
		out.Trend = &t
	}
	if e.Analysis != nil {
		a := e.Analysis.Clone()
		out.Analysis = &a
	}
	return out
}
