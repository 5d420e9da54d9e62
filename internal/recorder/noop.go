package recorder

import (
	"context"
	"time"

	"WeeklyStockPrice/internal/model"
)

// NoopRecorder is used when SQLite is not configured. Writes are dropped and
// reads are empty.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (NoopRecorder) RecordObservations(context.Context, model.Symbol, model.Interval, []model.PriceObservation) error {
	return nil
}
func (NoopRecorder) RecordWeekly(context.Context, []model.WeeklySnapshot) error { return nil }
func (NoopRecorder) LoadObservations(context.Context, model.Symbol, model.Interval, time.Time, time.Time) ([]model.PriceObservation, error) {
	return nil, nil
}
func (NoopRecorder) LatestObservation(context.Context, model.Symbol) (model.PriceObservation, bool, error) {
	return model.PriceObservation{}, false, nil
}
func (NoopRecorder) LatestWeekly(context.Context) ([]model.WeeklySnapshot, error) { return nil, nil }
func (NoopRecorder) TopGainers(context.Context, int) ([]model.WeeklySnapshot, error) {
	return nil, nil
}
func (NoopRecorder) TopLosers(context.Context, int) ([]model.WeeklySnapshot, error) {
	return nil, nil
}
func (NoopRecorder) MarketStats(context.Context) (model.MarketStats, error) {
	return ComputeMarketStats(nil), nil
}
func (NoopRecorder) Close() error { return nil }
