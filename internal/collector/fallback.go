package collector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"WeeklyStockPrice/internal/model"
)

// fallbackQuote is one line of the fallback JSONL file.
type fallbackQuote struct {
	Symbol       string          `json:"symbol"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	AsOf         time.Time       `json:"asOf"`
}

// LoadFallbackQuotes reads a JSONL file of last known quotes. A missing file
// yields an empty set.
func LoadFallbackQuotes(path string) (map[model.Symbol]model.PriceObservation, error) {
	quotes := make(map[model.Symbol]model.PriceObservation)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return quotes, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var q fallbackQuote
		if err := json.Unmarshal([]byte(text), &q); err != nil {
			return nil, fmt.Errorf("fallback line %d: %w", line, err)
		}
		sym, err := model.ParseSymbol(q.Symbol)
		if err != nil {
			return nil, fmt.Errorf("fallback line %d: %w", line, err)
		}
		if !q.CurrentPrice.IsPositive() {
			return nil, fmt.Errorf("fallback line %d: price must be positive", line)
		}
		quotes[sym] = model.PriceObservation{Time: q.AsOf.UTC(), Price: q.CurrentPrice}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return quotes, nil
}

// FallbackQuotes holds the last known quote per symbol, loaded from a JSONL
// snapshot. It is consulted only after live fetching has failed.
type FallbackQuotes struct {
	quotes map[model.Symbol]model.PriceObservation
}

// NewFallbackQuotes loads the snapshot at path.
func NewFallbackQuotes(path string) (*FallbackQuotes, error) {
	quotes, err := LoadFallbackQuotes(path)
	if err != nil {
		return nil, fmt.Errorf("load fallback quotes: %w", err)
	}
	log.Info().Str("path", path).Int("quotes", len(quotes)).Msg("fallback quotes loaded")
	return &FallbackQuotes{quotes: quotes}, nil
}

// Quote returns the last known quote for symbol.
func (f *FallbackQuotes) Quote(symbol model.Symbol) (model.PriceObservation, bool) {
	q, ok := f.quotes[symbol]
	return q, ok
}

func (f *FallbackQuotes) Len() int { return len(f.quotes) }
