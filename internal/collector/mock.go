package collector

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// MockFetcher returns deterministic generated data for development.
// Symbols listed in Unknown report NotFound.
type MockFetcher struct {
	Price   decimal.Decimal
	Now     func() time.Time
	Unknown map[model.Symbol]bool
}

// NewMockFetcher creates a mock around basePrice.
func NewMockFetcher(basePrice float64, now func() time.Time) *MockFetcher {
	return &MockFetcher{Price: decimal.NewFromFloat(basePrice), Now: now}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchLatest(_ context.Context, symbol model.Symbol) (model.PriceObservation, error) {
	if m.Unknown[symbol] {
		return model.PriceObservation{}, apperr.NotFound(string(symbol))
	}
	return model.PriceObservation{Time: m.Now().UTC(), Price: m.Price}, nil
}

func (m *MockFetcher) FetchHistory(_ context.Context, symbol model.Symbol, r model.Range) ([]model.PriceObservation, error) {
	if m.Unknown[symbol] {
		return nil, apperr.NotFound(string(symbol))
	}
	return generateMockBars(m.Price, r), nil
}

func intervalStep(i model.Interval) time.Duration {
	switch i {
	case model.Interval5m:
		return 5 * time.Minute
	case model.Interval1h:
		return time.Hour
	case model.Interval1wk:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// generateMockBars emits one bar per step walking back from r.End, skipping
// weekends for daily bars. The price climbs 0.05% per bar towards basePrice in 400-bar cycles.
func generateMockBars(basePrice decimal.Decimal, r model.Range) []model.PriceObservation {
	step := intervalStep(r.Interval)
	var bars []model.PriceObservation
	for t := r.End.Add(-step); !t.Before(r.Start) && len(bars) < 5000; t = t.Add(-step) {
		if r.Interval == model.Interval1d && (t.Weekday() == time.Saturday || t.Weekday() == time.Sunday) {
			continue
		}
		drift := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(0.0005).Mul(decimal.NewFromInt(int64(len(bars) % 400))))
		vol := int64(1000000)
		bars = append(bars, model.PriceObservation{Time: t.UTC(), Price: basePrice.Mul(drift), Volume: &vol})
	}
	return bars
}
