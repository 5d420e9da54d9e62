package model

import (
	"fmt"
	"strings"

	"WeeklyStockPrice/internal/apperr"
)

// Period is a symbolic lookback window.
type Period string

const (
	Period1D  Period = "1d"
	Period1W  Period = "1w"
	Period1M  Period = "1m"
	Period3M  Period = "3m"
	Period6M  Period = "6m"
	Period1Y  Period = "1y"
	PeriodYTD Period = "ytd"
	PeriodAll Period = "all"
)

// Periods lists every supported period, shortest first.
var Periods = []Period{Period1D, Period1W, Period1M, Period3M, Period6M, Period1Y, PeriodYTD, PeriodAll}

// ParsePeriod validates a period token.
func ParsePeriod(raw string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Periods {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown period %q", apperr.ErrInvalidInput, raw)
}

// Interval returns the bar granularity used to fetch this period.
func (p Period) Interval() Interval {
	switch p {
	case Period1D:
		return Interval5m
	case Period1W:
		return Interval1h
	case PeriodAll:
		return Interval1wk
	default:
		return Interval1d
	}
}
