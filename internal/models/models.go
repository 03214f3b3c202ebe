package models

import (
	"fmt"
	"time"
)

// PriceBar is a single OHLCV candle for a symbol at a timeframe.
// Bars are immutable once fetched; ordering is strictly increasing
// timestamp per (symbol, timeframe).
type PriceBar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timeframe string    `json:"timeframe"`
}

// Ticker is the latest traded price for a symbol.
type Ticker struct {
	Symbol    string    `json:"symbol"`
	Last      float64   `json:"last"`
	Timestamp time.Time `json:"timestamp"`
}

// Position is the signal state of the spread.
type Position int

const (
	ShortSpread Position = -1 // short symbol1, long symbol2
	Neutral     Position = 0
	LongSpread  Position = 1 // long symbol1, short symbol2
)

func (p Position) String() string {
	switch p {
	case LongSpread:
		return "long_spread"
	case ShortSpread:
		return "short_spread"
	default:
		return "neutral"
	}
}

// Trade is an append-only record of a portfolio transition. It is never
// mutated after creation; win-rate and reporting read it back.
type Trade struct {
	Timestamp      time.Time          `json:"timestamp"`
	Signal         Position           `json:"signal"`
	Prices         map[string]float64 `json:"prices"`
	Holdings       map[string]float64 `json:"holdings"`
	PortfolioValue float64            `json:"portfolio_value"`
	CashChange     float64            `json:"cash_change"`
}

// TimeframeDuration maps an exchange timeframe string to its bar duration.
func TimeframeDuration(timeframe string) (time.Duration, error) {
	switch timeframe {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unknown timeframe %q", timeframe)
}

// PeriodsPerYear returns how many bars of the given timeframe fit in a
// year, used to annualize volatility.
func PeriodsPerYear(timeframe string) (float64, error) {
	d, err := TimeframeDuration(timeframe)
	if err != nil {
		return 0, err
	}
	return float64(365*24*time.Hour) / float64(d), nil
}
