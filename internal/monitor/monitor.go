// Package monitor watches every open trade across all accounts and closes
// the ones that crossed their stop-loss or take-profit.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/candle-trade-bot/internal/datastore"
	"github.com/your-org/candle-trade-bot/internal/exchange"
	"github.com/your-org/candle-trade-bot/internal/model"
	"github.com/your-org/candle-trade-bot/internal/notify"
	"github.com/your-org/candle-trade-bot/internal/retry"
	"github.com/your-org/candle-trade-bot/pkg/logger"
)

// DefaultInterval is the scan cadence.
const DefaultInterval = 30 * time.Second

// AccountResolver maps a user id to exchange credentials. Credential storage
// lives outside the core.
type AccountResolver func(userID string) (exchange.Account, bool)

// Monitor is the single process-wide exit watcher. Scans never overlap: each
// pass completes before the next tick is consumed.
type Monitor struct {
	interval time.Duration
	store    datastore.TradeStore
	market   exchange.MarketData
	exec     exchange.Execution
	accounts AccountResolver
	notifier notify.Notifier
	log      logger.Logger
	clock    func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval overrides the scan cadence.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Monitor) { m.clock = clock }
}

// New creates a Monitor over the shared collaborators.
func New(store datastore.TradeStore, market exchange.MarketData, exec exchange.Execution, accounts AccountResolver, notifier notify.Notifier, log logger.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		interval: DefaultInterval,
		store:    store,
		market:   market,
		exec:     exec,
		accounts: accounts,
		notifier: notifier,
		log:      log,
		clock:    time.Now,
	}
	if m.notifier == nil {
		m.notifier = notify.NewNoOp()
	}
	if m.log == nil {
		m.log = logger.New("info")
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run scans immediately and then on every tick until the context is
// canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Infof("trade monitor started, scanning every %s", m.interval)
	m.Scan(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Infof("trade monitor stopped")
			return
		case <-ticker.C:
			m.Scan(ctx)
		}
	}
}

// Scan walks every open trade once. A failure on one trade never aborts the
// rest of the pass.
func (m *Monitor) Scan(ctx context.Context) {
	trades, err := m.store.OpenTrades(ctx)
	if err != nil {
		m.log.Errorf("monitor: listing open trades: %v", err)
		return
	}

	for _, trade := range trades {
		if ctx.Err() != nil {
			return
		}
		if err := m.check(ctx, trade); err != nil {
			m.log.Errorf("monitor: trade %s (%s %s): %v", trade.ID, trade.UserID, trade.Symbol, err)
		}
	}
}

func (m *Monitor) check(ctx context.Context, trade datastore.TradeExecution) error {
	// A trade with neither stop nor target has no exit condition to watch.
	if trade.StopLoss == 0 && trade.TakeProfit == 0 {
		return nil
	}

	account, ok := m.accounts(trade.UserID)
	if !ok {
		return fmt.Errorf("no account credentials")
	}

	ticker, err := retry.Value(ctx, retry.DefaultAttempts, retry.DefaultBaseDelay, func() (*model.Ticker, error) {
		return m.market.FetchTicker(ctx, account, trade.Symbol)
	})
	if err != nil {
		return fmt.Errorf("fetching price: %w", err)
	}

	reason, breached := exitReason(trade, ticker.Last)
	if !breached {
		return nil
	}

	result, err := retry.Value(ctx, retry.DefaultAttempts, retry.DefaultBaseDelay, func() (*exchange.OrderResult, error) {
		return m.exec.ClosePosition(ctx, account, trade.Symbol, trade.Amount)
	})
	if err != nil {
		return fmt.Errorf("closing position: %w", err)
	}

	exitPrice := ticker.Last
	if result.Price > 0 {
		exitPrice = result.Price
	}
	pnl := (exitPrice - trade.EntryPrice) * trade.Amount
	pnlPercent := 0.0
	if trade.EntryPrice != 0 {
		pnlPercent = (exitPrice - trade.EntryPrice) / trade.EntryPrice * 100
	}
	if trade.Side == model.SideSell {
		pnl = -pnl
		pnlPercent = -pnlPercent
	}

	claimed, err := m.store.MarkClosed(ctx, trade.ID, exitPrice, pnl, pnlPercent, m.clock())
	if err != nil {
		return fmt.Errorf("recording close: %w", err)
	}
	if !claimed {
		m.log.Warnf("monitor: trade %s already closed, skipping notification", trade.ID)
		return nil
	}

	m.log.Infof("monitor: closed %s %s %s at %.4f (%s, pnl %.4f)",
		trade.UserID, trade.Side, trade.Symbol, exitPrice, reason, pnl)

	event := notify.Event{
		Title: fmt.Sprintf("Trade closed: %s %s", trade.Side, trade.Symbol),
		Message: fmt.Sprintf("%s at %.4f, entry %.4f, pnl %.4f (%.2f%%)",
			reason, exitPrice, trade.EntryPrice, pnl, pnlPercent),
	}
	if err := m.notifier.Send(ctx, trade.UserID, event); err != nil {
		m.log.Warnf("monitor: notification for trade %s failed: %v", trade.ID, err)
	}
	return nil
}

// exitReason evaluates the exit conditions for the current price.
func exitReason(trade datastore.TradeExecution, price float64) (string, bool) {
	if trade.Side == model.SideBuy {
		if trade.StopLoss > 0 && price <= trade.StopLoss {
			return "stop-loss hit", true
		}
		if trade.TakeProfit > 0 && price >= trade.TakeProfit {
			return "take-profit hit", true
		}
		return "", false
	}
	if trade.StopLoss > 0 && price >= trade.StopLoss {
		return "stop-loss hit", true
	}
	if trade.TakeProfit > 0 && price <= trade.TakeProfit {
		return "take-profit hit", true
	}
	return "", false
}
