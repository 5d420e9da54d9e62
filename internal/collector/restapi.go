package collector

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

// RESTFetcher implements Fetcher against a plain bars/quote REST API
// authenticated with a bearer key.
type RESTFetcher struct {
	httpSource
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(opts HTTPOptions) *RESTFetcher {
	opts = opts.withDefaults("")
	return &RESTFetcher{httpSource: newHTTPSource("rest", opts)}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape of a bar.
type restBar struct {
	Timestamp int64           `json:"timestamp"`
	Close     decimal.Decimal `json:"close"`
	Volume    *int64          `json:"volume"`
}

func (f *RESTFetcher) FetchHistory(ctx context.Context, symbol model.Symbol, r model.Range) ([]model.PriceObservation, error) {
	req, err := f.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetQueryParams(map[string]string{
		"symbol":   string(symbol),
		"interval": string(r.Interval),
		"from":     strconv.FormatInt(r.Start.Unix(), 10),
		"to":       strconv.FormatInt(r.End.Unix(), 10),
	}).Get("/api/v1/bars")
	if err := f.classify(string(symbol), resp, err); err != nil {
		return nil, err
	}

	var bars []restBar
	if err := json.Unmarshal(resp.Body(), &bars); err != nil {
		return nil, apperr.Malformed("rest decode bars %s: %v", symbol, err)
	}
	out := make([]model.PriceObservation, len(bars))
	for i, b := range bars {
		out[i] = model.PriceObservation{
			Time:   time.Unix(b.Timestamp, 0).UTC(),
			Price:  b.Close,
			Volume: b.Volume,
		}
	}
	return out, nil
}

func (f *RESTFetcher) FetchLatest(ctx context.Context, symbol model.Symbol) (model.PriceObservation, error) {
	req, err := f.request(ctx)
	if err != nil {
		return model.PriceObservation{}, err
	}
	resp, err := req.SetQueryParam("symbol", string(symbol)).Get("/api/v1/quote")
	if err := f.classify(string(symbol), resp, err); err != nil {
		return model.PriceObservation{}, err
	}

	var result struct {
		Price     decimal.Decimal `json:"price"`
		Timestamp int64           `json:"timestamp"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return model.PriceObservation{}, apperr.Malformed("rest decode quote %s: %v", symbol, err)
	}
	return model.PriceObservation{Time: time.Unix(result.Timestamp, 0).UTC(), Price: result.Price}, nil
}
