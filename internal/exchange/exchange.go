// Package exchange defines the narrow collaborator contracts the trading core
// consumes: market data, order execution and balance lookup. Implementations
// wrap a concrete exchange client; the core never manages their internals.
package exchange

import (
	"context"

	"github.com/your-org/candle-trade-bot/internal/model"
)

// Account identifies one user's exchange credentials.
type Account struct {
	UserID    string
	APIKey    string
	APISecret string
	Testnet   bool
}

// OrderRequest describes an order to be placed.
type OrderRequest struct {
	Symbol     string
	Side       model.Side
	Type       string // "market" or "limit"
	Amount     float64
	Price      float64 // limit orders only
	StopLoss   float64
	TakeProfit float64
	Leverage   int
	MarginMode string // "isolated" or "cross"
}

// OrderResult is the outcome of an order placement or close.
type OrderResult struct {
	Success bool
	OrderID string
	Price   float64
	Error   string
}

// MarketData fetches tickers and candle history.
type MarketData interface {
	FetchTicker(ctx context.Context, account Account, symbol string) (*model.Ticker, error)
	FetchOHLCV(ctx context.Context, account Account, symbol, timeframe string, limit int) ([]model.Candle, error)
}

// Execution places and closes orders.
type Execution interface {
	PlaceOrder(ctx context.Context, account Account, req OrderRequest) (*OrderResult, error)
	ClosePosition(ctx context.Context, account Account, symbol string, amount float64) (*OrderResult, error)
	OpenPositions(ctx context.Context, account Account, symbol string) ([]model.Position, error)
}

// BalanceSource reports per-currency funds.
type BalanceSource interface {
	FetchBalance(ctx context.Context, account Account) (map[string]model.Balance, error)
}

// Client bundles every collaborator contract one exchange implements.
type Client interface {
	MarketData
	Execution
	BalanceSource
}
