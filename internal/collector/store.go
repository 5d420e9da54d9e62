package collector

import (
	"context"
	"time"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// ObservationStore is the read side of the persisted price store.
type ObservationStore interface {
	LoadObservations(ctx context.Context, symbol model.Symbol, interval model.Interval, start, end time.Time) ([]model.PriceObservation, error)
	LatestObservation(ctx context.Context, symbol model.Symbol) (model.PriceObservation, bool, error)
}

// StoreFetcher serves observations previously persisted by the collection job.
type StoreFetcher struct {
	Store ObservationStore
}

// NewStoreFetcher creates a fetcher over a persisted store.
func NewStoreFetcher(store ObservationStore) *StoreFetcher {
	return &StoreFetcher{Store: store}
}

func (f *StoreFetcher) Name() string { return "store" }

func (f *StoreFetcher) FetchHistory(ctx context.Context, symbol model.Symbol, r model.Range) ([]model.PriceObservation, error) {
	obs, err := f.Store.LoadObservations(ctx, symbol, r.Interval, r.Start, r.End)
	if err != nil {
		return nil, apperr.Provider(f.Name(), err)
	}
	if len(obs) == 0 {
		// An unknown symbol and an empty range look the same; only report
		// NotFound when nothing was ever stored.
		if _, ok, err := f.Store.LatestObservation(ctx, symbol); err != nil {
			return nil, apperr.Provider(f.Name(), err)
		} else if !ok {
			return nil, apperr.NotFound(string(symbol))
		}
	}
	return obs, nil
}

func (f *StoreFetcher) FetchLatest(ctx context.Context, symbol model.Symbol) (model.PriceObservation, error) {
	obs, ok, err := f.Store.LatestObservation(ctx, symbol)
	if err != nil {
		return model.PriceObservation{}, apperr.Provider(f.Name(), err)
	}
	if !ok {
		return model.PriceObservation{}, apperr.NotFound(string(symbol))
	}
	return obs, nil
}
