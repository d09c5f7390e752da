package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint represents OHLCV data for a single trading day.
// Immutable once constructed.
type PricePoint struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume int64           `json:"volume"`
}

// Validate checks the OHLCV invariants: high bounds open and close from
// above, low from below, and volume is non-negative.
func (p PricePoint) Validate() error {
	if p.High.LessThan(p.Open) || p.High.LessThan(p.Close) {
		return fmt.Errorf("high %s below open/close", p.High)
	}
	if p.Low.GreaterThan(p.Open) || p.Low.GreaterThan(p.Close) {
		return fmt.Errorf("low %s above open/close", p.Low)
	}
	if p.Volume < 0 {
		return fmt.Errorf("negative volume %d", p.Volume)
	}
	return nil
}

// CurrentData holds the live quote fields returned by the data provider
// for a single ticker.
type CurrentData struct {
	Ticker        string          `json:"ticker"`
	CompanyName   string          `json:"company_name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	DailyHigh     decimal.Decimal `json:"daily_high"`
	DailyLow      decimal.Decimal `json:"daily_low"`
	OpenPrice     decimal.Decimal `json:"open_price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Volume        int64           `json:"volume"`
	MarketCap     *int64          `json:"market_cap,omitempty"`
	PERatio       *float64        `json:"pe_ratio,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// MarketSnapshot is a point-in-time market data read for a ticker,
// including a bundled historical series in chronological order.
// Owned by a single analysis request and never mutated after construction.
type MarketSnapshot struct {
	Ticker       string          `json:"ticker"`
	CompanyName  string          `json:"company_name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	DailyHigh    decimal.Decimal `json:"daily_high"`
	DailyLow     decimal.Decimal `json:"daily_low"`
	Volume       int64           `json:"volume"`
	History      []PricePoint    `json:"history"`
	MarketCap    *int64          `json:"market_cap,omitempty"`
	PERatio      *float64        `json:"pe_ratio,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Validate checks snapshot invariants: positive price, daily range bounding
// the current price, non-negative volume, non-empty history.
func (s *MarketSnapshot) Validate() error {
	if !s.CurrentPrice.IsPositive() {
		return fmt.Errorf("current price must be positive, got %s", s.CurrentPrice)
	}
	if s.DailyHigh.LessThan(s.CurrentPrice) {
		return fmt.Errorf("daily high %s below current price %s", s.DailyHigh, s.CurrentPrice)
	}
	if s.DailyLow.GreaterThan(s.CurrentPrice) {
		return fmt.Errorf("daily low %s above current price %s", s.DailyLow, s.CurrentPrice)
	}
	if s.Volume < 0 {
		return fmt.Errorf("negative volume %d", s.Volume)
	}
	if len(s.History) == 0 {
		return fmt.Errorf("history must not be empty")
	}
	return nil
}

// PriceChangePercentage returns the percentage change of the current price
// against the most recent historical close. Zero when history is empty or
// the last close is zero.
func (s *MarketSnapshot) PriceChangePercentage() float64 {
	if len(s.History) == 0 {
		return 0
	}
	last := s.History[len(s.History)-1].Close
	if last.IsZero() {
		return 0
	}
	change, _ := s.CurrentPrice.Sub(last).Div(last).Mul(decimal.NewFromInt(100)).Float64()
	return change
}

// AverageVolume returns the mean daily volume over the trailing days of
// history, or over the whole history when it is shorter.
func (s *MarketSnapshot) AverageVolume(days int) float64 {
	if len(s.History) == 0 {
		return 0
	}
	start := len(s.History) - days
	if start < 0 {
		start = 0
	}
	window := s.History[start:]
	var total int64
	for _, p := range window {
		total += p.Volume
	}
	return float64(total) / float64(len(window))
}
