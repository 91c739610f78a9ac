// Package binance adapts the Binance USD-M futures API to the exchange
// collaborator contracts.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"

	"github.com/your-org/candle-trade-bot/internal/exchange"
	"github.com/your-org/candle-trade-bot/internal/model"
)

// testnetBaseURL is the USD-M futures testnet endpoint.
const testnetBaseURL = "https://testnet.binancefuture.com"

// Client implements exchange.Client against Binance futures. One underlying
// futures client is kept per account; all requests share a rate limiter so
// concurrent bot and monitor ticks stay inside the API weight budget.
type Client struct {
	mu      sync.Mutex
	clients map[string]*futures.Client
	limiter *rate.Limiter
}

// NewClient creates a Binance adapter allowing requestsPerSec API calls.
func NewClient(requestsPerSec int) *Client {
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}
	return &Client{
		clients: make(map[string]*futures.Client),
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(requestsPerSec)), requestsPerSec),
	}
}

func (c *Client) client(account exchange.Account) *futures.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fc, ok := c.clients[account.UserID]; ok {
		return fc
	}
	fc := futures.NewClient(account.APIKey, account.APISecret)
	// The library's testnet switch is a package-level global; per-account
	// selection has to go through the endpoint instead.
	if account.Testnet {
		fc.BaseURL = testnetBaseURL
	}
	c.clients[account.UserID] = fc
	return fc
}

// FetchTicker returns the latest quote for a symbol.
func (c *Client) FetchTicker(ctx context.Context, account exchange.Account, symbol string) (*model.Ticker, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	stats, err := c.client(account).NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching ticker for %s: %w", symbol, err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", symbol)
	}
	s := stats[0]
	p := &floatParser{}
	ticker := &model.Ticker{
		Symbol:    symbol,
		Last:      p.parse(s.LastPrice),
		High:      p.parse(s.HighPrice),
		Low:       p.parse(s.LowPrice),
		Volume:    p.parse(s.Volume),
		Timestamp: time.UnixMilli(s.CloseTime),
	}
	if p.err != nil {
		return nil, fmt.Errorf("ticker payload for %s: %w", symbol, p.err)
	}
	return ticker, nil
}

// FetchOHLCV returns up to limit candles ordered by open time ascending.
func (c *Client) FetchOHLCV(ctx context.Context, account exchange.Account, symbol, timeframe string, limit int) ([]model.Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	klines, err := c.client(account).NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s %s: %w", symbol, timeframe, err)
	}

	p := &floatParser{}
	candles := make([]model.Candle, len(klines))
	for i, k := range klines {
		candles[i] = model.Candle{
			Timestamp: time.UnixMilli(k.OpenTime),
			Open:      p.parse(k.Open),
			High:      p.parse(k.High),
			Low:       p.parse(k.Low),
			Close:     p.parse(k.Close),
			Volume:    p.parse(k.Volume),
		}
	}
	if p.err != nil {
		return nil, fmt.Errorf("kline payload for %s %s: %w", symbol, timeframe, p.err)
	}
	return candles, nil
}

// PlaceOrder submits a market or limit order, setting leverage and margin
// mode first when the request carries them.
func (c *Client) PlaceOrder(ctx context.Context, account exchange.Account, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	fc := c.client(account)

	if req.MarginMode != "" {
		marginType := futures.MarginTypeCrossed
		if req.MarginMode == "isolated" {
			marginType = futures.MarginTypeIsolated
		}
		// Already-set margin mode returns an error; not fatal.
		_ = fc.NewChangeMarginTypeService().Symbol(req.Symbol).MarginType(marginType).Do(ctx)
	}
	if req.Leverage > 0 {
		if _, err := fc.NewChangeLeverageService().Symbol(req.Symbol).Leverage(req.Leverage).Do(ctx); err != nil {
			return nil, fmt.Errorf("setting leverage for %s: %w", req.Symbol, err)
		}
	}

	side := futures.SideTypeBuy
	if req.Side == model.SideSell {
		side = futures.SideTypeSell
	}
	svc := fc.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Quantity(strconv.FormatFloat(req.Amount, 'f', -1, 64))
	if req.Type == "limit" && req.Price > 0 {
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(strconv.FormatFloat(req.Price, 'f', -1, 64))
	} else {
		svc = svc.Type(futures.OrderTypeMarket)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return &exchange.OrderResult{Success: false, Error: err.Error()}, err
	}
	return &exchange.OrderResult{
		Success: true,
		OrderID: strconv.FormatInt(resp.OrderID, 10),
		Price:   fillPrice(resp.AvgPrice),
	}, nil
}

// ClosePosition submits a reduce-only market order opposite to the open
// position. When amount is zero the full position size is closed.
func (c *Client) ClosePosition(ctx context.Context, account exchange.Account, symbol string, amount float64) (*exchange.OrderResult, error) {
	positions, err := c.OpenPositions(ctx, account, symbol)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("no open position for %s", symbol)
	}
	pos := positions[0]
	if amount <= 0 || amount > pos.Amount {
		amount = pos.Amount
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	side := futures.SideTypeSell
	if pos.Side == model.SideSell {
		side = futures.SideTypeBuy
	}
	resp, err := c.client(account).NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(strconv.FormatFloat(amount, 'f', -1, 64)).
		ReduceOnly(true).
		Do(ctx)
	if err != nil {
		return &exchange.OrderResult{Success: false, Error: err.Error()}, err
	}
	return &exchange.OrderResult{
		Success: true,
		OrderID: strconv.FormatInt(resp.OrderID, 10),
		Price:   fillPrice(resp.AvgPrice),
	}, nil
}

// OpenPositions lists non-zero positions, optionally filtered by symbol.
func (c *Client) OpenPositions(ctx context.Context, account exchange.Account, symbol string) ([]model.Position, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	svc := c.client(account).NewGetPositionRiskService()
	if symbol != "" {
		svc = svc.Symbol(symbol)
	}
	risks, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	p := &floatParser{}
	var positions []model.Position
	for _, r := range risks {
		amt := p.parse(r.PositionAmt)
		if amt == 0 {
			continue
		}
		side := model.SideBuy
		if amt < 0 {
			side = model.SideSell
			amt = -amt
		}
		leverage, _ := strconv.Atoi(r.Leverage)
		positions = append(positions, model.Position{
			Symbol:     r.Symbol,
			Side:       side,
			Amount:     amt,
			EntryPrice: p.parse(r.EntryPrice),
			Leverage:   leverage,
			PnL:        p.parse(r.UnRealizedProfit),
		})
	}
	if p.err != nil {
		return nil, fmt.Errorf("position payload: %w", p.err)
	}
	return positions, nil
}

// FetchBalance returns per-asset funds on the futures wallet.
func (c *Client) FetchBalance(ctx context.Context, account exchange.Account) (map[string]model.Balance, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	balances, err := c.client(account).NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}

	p := &floatParser{}
	out := make(map[string]model.Balance, len(balances))
	for _, b := range balances {
		total := p.parse(b.Balance)
		free := p.parse(b.AvailableBalance)
		out[b.Asset] = model.Balance{
			Currency: b.Asset,
			Free:     free,
			Used:     total - free,
			Total:    total,
		}
	}
	if p.err != nil {
		return nil, fmt.Errorf("balance payload: %w", p.err)
	}
	return out, nil
}

// floatParser converts the exchange's numeric strings, keeping the first
// parse failure so a malformed payload surfaces as one error per call.
type floatParser struct {
	err error
}

func (p *floatParser) parse(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parsing numeric field %q: %w", s, err)
	}
	return v
}

// fillPrice reads the average fill price of a placed order. The order has
// already executed at this point, so a malformed price degrades to zero
// instead of failing the call; callers fall back to the quote.
func fillPrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
