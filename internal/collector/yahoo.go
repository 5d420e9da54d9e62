package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	httpSource
	SymbolMap map[model.Symbol]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts HTTPOptions) *YahooFetcher {
	opts = opts.withDefaults(yahooBaseURL)
	return &YahooFetcher{
		httpSource: newHTTPSource("yahoo", opts),
		SymbolMap: map[model.Symbol]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol model.Symbol) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return string(symbol)
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				RegularMarketTime  *int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooInterval maps our bar granularity to the chart API's interval names.
func yahooInterval(i model.Interval) string {
	switch i {
	case model.Interval5m:
		return "5m"
	case model.Interval1h:
		return "60m"
	case model.Interval1wk:
		return "1wk"
	default:
		return "1d"
	}
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol model.Symbol, params map[string]string) (*yahooChart, error) {
	req, err := f.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetQueryParams(params).Get("/" + url.PathEscape(f.yahooSymbol(symbol)))
	if err := f.classify(string(symbol), resp, err); err != nil {
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		return nil, apperr.Malformed("yahoo decode %s: %v", symbol, err)
	}
	if e := chart.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, apperr.NotFound(string(symbol))
		}
		return nil, apperr.Provider(f.Name(), fmt.Errorf("%s: %s", e.Code, e.Description))
	}
	if len(chart.Chart.Result) == 0 {
		return nil, apperr.NotFound(string(symbol))
	}
	return &chart, nil
}

// FetchHistory returns the bars between r.Start and r.End.
func (f *YahooFetcher) FetchHistory(ctx context.Context, symbol model.Symbol, r model.Range) ([]model.PriceObservation, error) {
	chart, err := f.fetchChart(ctx, symbol, map[string]string{
		"period1":  strconv.FormatInt(r.Start.Unix(), 10),
		"period2":  strconv.FormatInt(r.End.Unix(), 10),
		"interval": yahooInterval(r.Interval),
	})
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]
	if len(quote.Close) < len(result.Timestamp) {
		return nil, apperr.Malformed("yahoo %s: %d timestamps but %d closes", symbol, len(result.Timestamp), len(quote.Close))
	}

	bars := make([]model.PriceObservation, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := quote.Close[i]
		if c == nil {
			continue // skip null bars (holidays etc.)
		}
		obs := model.PriceObservation{
			Time:  time.Unix(ts, 0).UTC(),
			Price: decimal.NewFromFloat(*c),
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			v := *quote.Volume[i]
			obs.Volume = &v
		}
		bars = append(bars, obs)
	}
	return bars, nil
}

// FetchLatest returns the regular market price from the chart metadata,
// falling back to the most recent daily close.
func (f *YahooFetcher) FetchLatest(ctx context.Context, symbol model.Symbol) (model.PriceObservation, error) {
	chart, err := f.fetchChart(ctx, symbol, map[string]string{"range": "1d", "interval": "1d"})
	if err != nil {
		return model.PriceObservation{}, err
	}
	result := chart.Chart.Result[0]
	if p, ts := result.Meta.RegularMarketPrice, result.Meta.RegularMarketTime; p != nil && ts != nil {
		return model.PriceObservation{Time: time.Unix(*ts, 0).UTC(), Price: decimal.NewFromFloat(*p)}, nil
	}
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := len(result.Timestamp) - 1; i >= 0; i-- {
			if i < len(closes) && closes[i] != nil {
				return model.PriceObservation{Time: time.Unix(result.Timestamp[i], 0).UTC(), Price: decimal.NewFromFloat(*closes[i])}, nil
			}
		}
	}
	return model.PriceObservation{}, apperr.NotFound(string(symbol))
}
