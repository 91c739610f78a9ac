// Package bot runs the per-account trading cycle: analyze, score, size and
// execute. One Bot instance exists per started user account; the Registry is
// the scheduler host owning all instances.
package bot

import (
	"fmt"
	"time"
)

// Config is the per-user bot configuration, immutable for the lifetime of one
// run. Changing it requires stop and restart.
type Config struct {
	Symbol    string        `yaml:"symbol"`
	Timeframe string        `yaml:"timeframe"`
	Interval  time.Duration `yaml:"interval"`

	RSIPeriod  int     `yaml:"rsi_period"`
	Oversold   float64 `yaml:"oversold"`
	Overbought float64 `yaml:"overbought"`

	UseMACD     bool `yaml:"use_macd"`
	UsePatterns bool `yaml:"use_patterns"`
	UseAdvisor  bool `yaml:"use_advisor"`

	MaxTradesPerDay int     `yaml:"max_trades_per_day"`
	MaxDailyLoss    float64 `yaml:"max_daily_loss"`

	PositionSizePct float64 `yaml:"position_size_pct"` // risk budget per trade
	StopLossPct     float64 `yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `yaml:"take_profit_pct"`

	UseATRStops   bool    `yaml:"use_atr_stops"`
	ATRMultiplier float64 `yaml:"atr_multiplier"`
	RiskReward    float64 `yaml:"risk_reward"`

	Leverage   int    `yaml:"leverage"`
	MarginMode string `yaml:"margin_mode"`
	QuoteAsset string `yaml:"quote_asset"`

	MinConfidence float64 `yaml:"min_confidence"`
	CandleLimit   int     `yaml:"candle_limit"`
	MinCandles    int     `yaml:"min_candles"`
	PatternWindow int     `yaml:"pattern_window"`
}

// DefaultConfig returns a Config with the standard parameters for a symbol.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:          symbol,
		Timeframe:       "1h",
		Interval:        60 * time.Second,
		RSIPeriod:       14,
		Oversold:        30,
		Overbought:      70,
		UseMACD:         true,
		UsePatterns:     true,
		UseAdvisor:      false,
		MaxTradesPerDay: 10,
		MaxDailyLoss:    100,
		PositionSizePct: 2,
		StopLossPct:     2,
		TakeProfitPct:   4,
		ATRMultiplier:   1.5,
		RiskReward:      2,
		Leverage:        1,
		MarginMode:      "isolated",
		QuoteAsset:      "USDT",
		MinConfidence:   60,
		CandleLimit:     100,
		MinCandles:      50,
		PatternWindow:   10,
	}
}

// Validate checks the configuration before a bot is started. Errors here are
// the only failures surfaced synchronously to the caller of Start.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("config: symbol is required")
	}
	if c.Timeframe == "" {
		return fmt.Errorf("config: timeframe is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("config: interval must be positive")
	}
	if c.PositionSizePct <= 0 || c.PositionSizePct > 10 {
		return fmt.Errorf("config: position size percent must be in (0, 10], got %.2f", c.PositionSizePct)
	}
	if c.StopLossPct <= 0 && !c.UseATRStops {
		return fmt.Errorf("config: stop loss percent must be positive")
	}
	if c.TakeProfitPct <= 0 && !c.UseATRStops {
		return fmt.Errorf("config: take profit percent must be positive")
	}
	if c.MaxTradesPerDay <= 0 {
		return fmt.Errorf("config: max trades per day must be positive")
	}
	if c.MaxDailyLoss <= 0 {
		return fmt.Errorf("config: max daily loss must be positive")
	}
	if c.Oversold <= 0 || c.Oversold >= 100 || c.Overbought <= 0 || c.Overbought >= 100 || c.Oversold >= c.Overbought {
		return fmt.Errorf("config: RSI thresholds out of range (oversold=%.0f overbought=%.0f)", c.Oversold, c.Overbought)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("config: min confidence must be in [0, 100]")
	}
	if c.MinCandles < c.RSIPeriod+1 {
		return fmt.Errorf("config: min candles must cover the RSI period")
	}
	return nil
}

// Status is the per-user mutable bot state, owned exclusively by the bot's
// scheduler goroutine. Callers receive copies.
type Status struct {
	Running        bool
	StartedAt      time.Time
	LastAnalysisAt time.Time
	LastSignal     string
	LastConfidence float64
	LastRationale  string
	TradesToday    int
	DailyPnL       float64
	Day            string // UTC date the daily counters belong to
}
