// Package datastore persists trade executions and per-user risk settings.
// Two implementations exist: a pgx-backed Repository and an in-memory store
// used by tests and DB-less runs.
package datastore

import (
	"context"
	"time"

	"github.com/your-org/candle-trade-bot/internal/model"
)

// TradeStatus is the lifecycle state of a trade execution.
type TradeStatus string

const (
	StatusPending         TradeStatus = "pending"
	StatusFilled          TradeStatus = "filled"
	StatusPartiallyFilled TradeStatus = "partially_filled"
	StatusCanceled        TradeStatus = "canceled"
	StatusFailed          TradeStatus = "failed"
)

// TradeExecution is the durable record of an attempted or filled order.
// After creation only the status, error and close-side fields are ever
// mutated: status/error by the placement path, the close-side fields by the
// trade monitor.
type TradeExecution struct {
	ID         string
	UserID     string
	Symbol     string
	Side       model.Side
	Type       string
	Amount     float64
	EntryPrice float64
	StopLoss   float64 // 0 means not configured
	TakeProfit float64 // 0 means not configured
	Leverage   int
	MarginMode string
	Status     TradeStatus
	Error      string
	ExitPrice  *float64
	PnL        *float64
	PnLPercent *float64
	CreatedAt  time.Time
	ClosedAt   *time.Time
}

// Open reports whether the trade is filled and not yet closed.
func (t *TradeExecution) Open() bool {
	return t.Status == StatusFilled && t.ClosedAt == nil
}

// TradeStore is the persistence contract for trade executions.
type TradeStore interface {
	// Insert stores a freshly placed trade.
	Insert(ctx context.Context, trade *TradeExecution) error
	// UpdateStatus updates the lifecycle state and optional failure reason.
	UpdateStatus(ctx context.Context, id string, status TradeStatus, reason string) error
	// MarkClosed records the close-side fields. It only succeeds while
	// ClosedAt is still null and reports whether this call claimed the close,
	// so two monitor passes can never both close the same trade.
	MarkClosed(ctx context.Context, id string, exitPrice, pnl, pnlPercent float64, closedAt time.Time) (bool, error)
	// OpenTrades lists every filled trade without a close timestamp.
	OpenTrades(ctx context.Context) ([]TradeExecution, error)
	// OpenTradeForSymbol returns the open trade for one (user, symbol) pair,
	// or nil when there is none.
	OpenTradeForSymbol(ctx context.Context, userID, symbol string) (*TradeExecution, error)
	// ClosedTrades lists a user's closed trades ordered by close time.
	ClosedTrades(ctx context.Context, userID string) ([]TradeExecution, error)
}

// RiskSettings are the per-user limits the scheduler reads each run.
type RiskSettings struct {
	UserID        string
	RiskPercent   float64
	MaxDailyLoss  float64
	MaxOpenTrades int
	MinRiskReward float64
}

// SettingsStore is the persistence contract for risk settings.
type SettingsStore interface {
	RiskSettings(ctx context.Context, userID string) (*RiskSettings, error)
	SaveRiskSettings(ctx context.Context, settings *RiskSettings) error
}

// Store bundles both persistence contracts.
type Store interface {
	TradeStore
	SettingsStore
}

func sideFromString(s string) model.Side {
	if s == string(model.SideSell) {
		return model.SideSell
	}
	return model.SideBuy
}
