// Package model defines shared market data types used across the trading core.
package model

import "time"

// Side represents a trading direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the closing direction for a side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Trend represents the market trend classification.
type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
)

// Candle is one OHLCV bar. Candles are immutable once fetched and ordered by
// timestamp ascending for one (symbol, timeframe) pair.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Body returns the absolute body size.
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-low span.
func (c Candle) Range() float64 { return c.High - c.Low }

// UpperShadow returns the wick above the body.
func (c Candle) UpperShadow() float64 {
	if c.Close > c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

// LowerShadow returns the wick below the body.
func (c Candle) LowerShadow() float64 {
	if c.Close > c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// Closes extracts the close series from a candle window.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Ticker is a point-in-time market quote.
type Ticker struct {
	Symbol    string    `json:"symbol"`
	Last      float64   `json:"last"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Balance holds per-currency funds.
type Balance struct {
	Currency string  `json:"currency"`
	Free     float64 `json:"free"`
	Used     float64 `json:"used"`
	Total    float64 `json:"total"`
}

// Position is an open position as reported by the exchange.
type Position struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Amount     float64 `json:"amount"`
	EntryPrice float64 `json:"entryPrice"`
	Leverage   int     `json:"leverage"`
	PnL        float64 `json:"pnl"`
}
