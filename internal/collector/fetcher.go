package collector

import (
	"context"
	"time"

	"WeeklyStockPrice/internal/model"
)

// Fetcher is a price data source. Implementations return raw, possibly
// unordered observations; they do not cache.
//
// Errors wrap apperr.ErrNotFound when the source does not know the symbol
// and apperr.ErrProvider for transient failures.
type Fetcher interface {
	FetchLatest(ctx context.Context, symbol model.Symbol) (model.PriceObservation, error)
	FetchHistory(ctx context.Context, symbol model.Symbol, r model.Range) ([]model.PriceObservation, error)
	Name() string
}

// HTTPOptions configures the HTTP-backed fetchers.
type HTTPOptions struct {
	BaseURL       string
	APIKey        string
	Proxy         string
	Timeout       time.Duration
	RatePerSecond float64 // zero disables outbound limiting
	Burst         int
	UserAgent     string
}

func (o HTTPOptions) withDefaults(baseURL string) HTTPOptions {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	return o
}
