package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is a watchlist entry.
type Company struct {
	Symbol  Symbol `json:"symbol" yaml:"symbol"`
	Name    string `json:"name" yaml:"name"`
	Country string `json:"country" yaml:"country"`
	Market  string `json:"market" yaml:"market"`
}

// WeeklySnapshot is the Friday-to-Friday summary collected for one symbol.
type WeeklySnapshot struct {
	Symbol        Symbol          `json:"symbol" db:"symbol"`
	Name          string          `json:"companyName" db:"name"`
	ThisFriday    string          `json:"thisFridayDate" db:"this_friday"`
	LastFriday    string          `json:"lastFridayDate" db:"last_friday"`
	Close         decimal.Decimal `json:"today" db:"close"`
	LastWeekClose decimal.Decimal `json:"lastWeek" db:"last_week_close"`
	ChangeRate    decimal.Decimal `json:"changeRate" db:"change_rate"`
	WeekHigh      decimal.Decimal `json:"weekHigh" db:"week_high"`
	WeekLow       decimal.Decimal `json:"weekLow" db:"week_low"`
	Source        string          `json:"dataSource" db:"source"`
	RunID         string          `json:"runId" db:"run_id"`
	CollectedAt   time.Time       `json:"collectedAt" db:"collected_at"`
}

// MarketStats summarizes the latest weekly snapshots.
type MarketStats struct {
	TotalCompanies    int             `json:"totalCompanies"`
	PositiveChange    int             `json:"positiveChange"`
	NegativeChange    int             `json:"negativeChange"`
	Unchanged         int             `json:"unchanged"`
	AverageChangeRate decimal.Decimal `json:"averageChangeRate"`
	MaxChangeRate     decimal.Decimal `json:"maxChangeRate"`
	MinChangeRate     decimal.Decimal `json:"minChangeRate"`
}
