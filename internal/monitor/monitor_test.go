package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/candle-trade-bot/internal/datastore"
	"github.com/your-org/candle-trade-bot/internal/exchange"
	"github.com/your-org/candle-trade-bot/internal/model"
	"github.com/your-org/candle-trade-bot/internal/notify"
	"github.com/your-org/candle-trade-bot/pkg/logger"
)

type fakeMarket struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
}

func (m *fakeMarket) setPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prices == nil {
		m.prices = make(map[string]float64)
	}
	m.prices[symbol] = price
}

func (m *fakeMarket) FetchTicker(ctx context.Context, account exchange.Account, symbol string) (*model.Ticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	return &model.Ticker{Symbol: symbol, Last: m.prices[symbol]}, nil
}

func (m *fakeMarket) FetchOHLCV(ctx context.Context, account exchange.Account, symbol, timeframe string, limit int) ([]model.Candle, error) {
	return nil, errors.New("not used")
}

type fakeExec struct {
	mu       sync.Mutex
	closed   []string
	result   *exchange.OrderResult
	closeErr error
}

func (e *fakeExec) PlaceOrder(ctx context.Context, account exchange.Account, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	return nil, errors.New("not used")
}

func (e *fakeExec) ClosePosition(ctx context.Context, account exchange.Account, symbol string, amount float64) (*exchange.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closeErr != nil {
		return nil, e.closeErr
	}
	e.closed = append(e.closed, symbol)
	if e.result != nil {
		return e.result, nil
	}
	return &exchange.OrderResult{Success: true}, nil
}

func (e *fakeExec) OpenPositions(ctx context.Context, account exchange.Account, symbol string) ([]model.Position, error) {
	return nil, nil
}

func (e *fakeExec) closedSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.closed...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Send(ctx context.Context, userID string, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func allAccounts(userID string) (exchange.Account, bool) {
	return exchange.Account{UserID: userID, APIKey: "k", APISecret: "s"}, true
}

func openBuyTrade(id, symbol string, entry, stop, target float64) datastore.TradeExecution {
	return datastore.TradeExecution{
		ID:         id,
		UserID:     "alice",
		Symbol:     symbol,
		Side:       model.SideBuy,
		Type:       "market",
		Amount:     2,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Status:     datastore.StatusFilled,
		CreatedAt:  time.Now(),
	}
}

func newTestMonitor(store datastore.TradeStore, market *fakeMarket, exec *fakeExec, notifier notify.Notifier) *Monitor {
	if notifier == nil {
		notifier = notify.NewNoOp()
	}
	clock := func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return New(store, market, exec, allAccounts, notifier, logger.New("error"), WithClock(clock))
}

func TestScan_ClosesOnStopLoss(t *testing.T) {
	store := datastore.NewInMemStore()
	store.SeedTrades([]datastore.TradeExecution{openBuyTrade("t1", "BTCUSDT", 110, 100, 120)})
	market := &fakeMarket{}
	market.setPrice("BTCUSDT", 99)
	exec := &fakeExec{}
	notifier := &recordingNotifier{}

	m := newTestMonitor(store, market, exec, notifier)
	m.Scan(context.Background())

	assert.Equal(t, []string{"BTCUSDT"}, exec.closedSymbols())

	got, ok := store.Trade("t1")
	require.True(t, ok)
	require.NotNil(t, got.ClosedAt)
	require.NotNil(t, got.PnL)
	assert.InDelta(t, (99.0-110.0)*2, *got.PnL, 1e-9)
	assert.Less(t, *got.PnL, 0.0)
	require.NotNil(t, got.ExitPrice)
	assert.Equal(t, 99.0, *got.ExitPrice)

	assert.Equal(t, 1, notifier.count())
}

func TestScan_ClosesOnTakeProfit(t *testing.T) {
	store := datastore.NewInMemStore()
	store.SeedTrades([]datastore.TradeExecution{openBuyTrade("t1", "BTCUSDT", 110, 100, 120)})
	market := &fakeMarket{}
	market.setPrice("BTCUSDT", 121)
	exec := &fakeExec{}

	m := newTestMonitor(store, market, exec, nil)
	m.Scan(context.Background())

	got, ok := store.Trade("t1")
	require.True(t, ok)
	require.NotNil(t, got.ClosedAt)
	require.NotNil(t, got.PnL)
	assert.InDelta(t, (121.0-110.0)*2, *got.PnL, 1e-9)
	assert.Greater(t, *got.PnL, 0.0)
}

func TestScan_PriceBetweenThresholdsLeavesTradeOpen(t *testing.T) {
	store := datastore.NewInMemStore()
	store.SeedTrades([]datastore.TradeExecution{openBuyTrade("t1", "BTCUSDT", 110, 100, 120)})
	market := &fakeMarket{}
	market.setPrice("BTCUSDT", 110)
	exec := &fakeExec{}

	m := newTestMonitor(store, market, exec, nil)
	m.Scan(context.Background())

	assert.Empty(t, exec.closedSymbols())
	got, _ := store.Trade("t1")
	assert.Nil(t, got.ClosedAt)
}

func TestScan_SellSideThresholdsMirrored(t *testing.T) {
	trade := openBuyTrade("t1", "BTCUSDT", 100, 110, 90)
	trade.Side = model.SideSell

	store := datastore.NewInMemStore()
	store.SeedTrades([]datastore.TradeExecution{trade})
	market := &fakeMarket{}
	market.setPrice("BTCUSDT", 89)
	exec := &fakeExec{}

	m := newTestMonitor(store, market, exec, nil)
	m.Scan(context.Background())

	got, ok := store.Trade("t1")
	require.True(t, ok)
	require.NotNil(t, got.PnL)
	// A short closed below entry is a profit.
	assert.InDelta(t, (100.0-89.0)*2, *got.PnL, 1e-9)
}

func TestScan_UsesFillPriceWhenReported(t *testing.T) {
	store := datastore.NewInMemStore()
	store.SeedTrades([]datastore.TradeExecution{openBuyTrade("t1", "BTCUSDT", 110, 100, 120)})
	market := &fakeMarket{}
	market.setPrice("BTCUSDT", 99)
	exec := &fakeExec{result: &exchange.OrderResult{Success: true, Price: 98.7}}

	m := newTestMonitor(store, market, exec, nil)
	m.Scan(context.Background())

	got, _ := store.Trade("t1")
	require.NotNil(t, got.ExitPrice)
	assert.Equal(t, 98.7, *got.ExitPrice)
}

func TestScan_SkipsTradesWithoutExitLevels(t *testing.T) {
	store := datastore.NewInMemStore()
	store.SeedTrades([]datastore.TradeExecution{openBuyTrade("t1", "BTCUSDT", 110, 0, 0)})
	market := &fakeMarket{}
	market.setPrice("BTCUSDT", 1)
	exec := &fakeExec{}

	m := newTestMonitor(store, market, exec, nil)
	m.Scan(context.Background())

	assert.Empty(t, exec.closedSymbols())
	got, _ := store.Trade("t1")
	assert.Nil(t, got.ClosedAt)
}

func TestScan_SecondPassDoesNotCloseAgain(t *testing.T) {
	store := datastore.NewInMemStore()
	store.SeedTrades([]datastore.TradeExecution{openBuyTrade("t1", "BTCUSDT", 110, 100, 120)})
	market := &fakeMarket{}
	market.setPrice("BTCUSDT", 99)
	exec := &fakeExec{}
	notifier := &recordingNotifier{}

	m := newTestMonitor(store, market, exec, notifier)
	m.Scan(context.Background())
	m.Scan(context.Background())

	// The closed trade leaves the open set, so the second pass never touches it.
	assert.Equal(t, []string{"BTCUSDT"}, exec.closedSymbols())
	assert.Equal(t, 1, notifier.count())
}

func TestScan_OneFailingTradeDoesNotAbortPass(t *testing.T) {
	store := datastore.NewInMemStore()
	bad := openBuyTrade("t1", "FAILUSDT", 110, 100, 120)
	bad.CreatedAt = time.Now().Add(-time.Hour)
	good := openBuyTrade("t2", "BTCUSDT", 110, 100, 120)
	store.SeedTrades([]datastore.TradeExecution{bad, good})

	market := &fakeMarket{errs: map[string]error{"FAILUSDT": errors.New("feed down")}}
	market.setPrice("BTCUSDT", 99)
	exec := &fakeExec{}

	m := newTestMonitor(store, market, exec, nil)
	m.Scan(context.Background())

	// The failing trade is logged and skipped; the healthy one still closes.
	assert.Equal(t, []string{"BTCUSDT"}, exec.closedSymbols())
	got, _ := store.Trade("t2")
	assert.NotNil(t, got.ClosedAt)
	got, _ = store.Trade("t1")
	assert.Nil(t, got.ClosedAt)
}

func TestExitReason(t *testing.T) {
	buy := openBuyTrade("t1", "BTCUSDT", 110, 100, 120)
	sell := openBuyTrade("t2", "BTCUSDT", 100, 110, 90)
	sell.Side = model.SideSell

	tests := []struct {
		name     string
		trade    datastore.TradeExecution
		price    float64
		wantHit  bool
		wantName string
	}{
		{"buy above stop below target", buy, 110, false, ""},
		{"buy at stop", buy, 100, true, "stop-loss hit"},
		{"buy at target", buy, 120, true, "take-profit hit"},
		{"sell at stop", sell, 110, true, "stop-loss hit"},
		{"sell at target", sell, 90, true, "take-profit hit"},
		{"sell in range", sell, 100, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, hit := exitReason(tt.trade, tt.price)
			assert.Equal(t, tt.wantHit, hit)
			assert.Equal(t, tt.wantName, reason)
		})
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := datastore.NewInMemStore()
	market := &fakeMarket{}
	exec := &fakeExec{}

	m := New(store, market, exec, allAccounts, notify.NewNoOp(), logger.New("error"),
		WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
