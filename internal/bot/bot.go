package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/candle-trade-bot/internal/advisor"
	"github.com/your-org/candle-trade-bot/internal/datastore"
	"github.com/your-org/candle-trade-bot/internal/exchange"
	"github.com/your-org/candle-trade-bot/internal/indicator"
	"github.com/your-org/candle-trade-bot/internal/model"
	"github.com/your-org/candle-trade-bot/internal/notify"
	"github.com/your-org/candle-trade-bot/internal/pattern"
	"github.com/your-org/candle-trade-bot/internal/retry"
	"github.com/your-org/candle-trade-bot/internal/risk"
	"github.com/your-org/candle-trade-bot/pkg/logger"
)

const dayLayout = "2006-01-02"

// Deps are the injected collaborators one bot consumes. Oracle may be nil
// when advisory confirmation is disabled.
type Deps struct {
	Market   exchange.MarketData
	Exec     exchange.Execution
	Balance  exchange.BalanceSource
	Store    datastore.Store
	Oracle   advisor.Oracle
	Notifier notify.Notifier
	Log      logger.Logger
	Clock    func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Bot is one user's trading scheduler. It owns its Status; nothing else
// mutates it.
type Bot struct {
	userID  string
	account exchange.Account
	cfg     Config
	deps    Deps

	// tickMu serializes cycles so a tick never overlaps its predecessor.
	tickMu sync.Mutex

	statusMu sync.RWMutex
	status   Status

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped bot for one account.
func New(account exchange.Account, cfg Config, deps Deps) *Bot {
	if deps.Log == nil {
		deps.Log = logger.New("info")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewNoOp()
	}
	return &Bot{
		userID:  account.UserID,
		account: account,
		cfg:     cfg,
		deps:    deps,
	}
}

// Start validates the configuration, resets the status and begins periodic
// ticking. The first cycle runs immediately. Configuration errors are the
// only failures surfaced here.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.cfg.Validate(); err != nil {
		return err
	}

	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel != nil {
		return fmt.Errorf("bot for user %s is already running", b.userID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	now := b.deps.now()
	b.statusMu.Lock()
	b.status = Status{
		Running:   true,
		StartedAt: now,
		Day:       now.UTC().Format(dayLayout),
	}
	b.statusMu.Unlock()

	go b.run(runCtx)
	b.deps.Log.Infof("[bot %s] started on %s %s, tick every %s", b.userID, b.cfg.Symbol, b.cfg.Timeframe, b.cfg.Interval)
	return nil
}

// Stop cancels the periodic tick. It takes effect before the next tick
// boundary; an in-flight cycle is allowed to complete.
func (b *Bot) Stop() {
	b.runMu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.runMu.Unlock()
	if cancel != nil {
		cancel()
		b.deps.Log.Infof("[bot %s] stop requested", b.userID)
	}
}

// Done returns a channel closed when the run loop has fully exited.
func (b *Bot) Done() <-chan struct{} {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	return b.done
}

// Status returns a copy of the bot's current state.
func (b *Bot) Status() Status {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	return b.status
}

func (b *Bot) run(ctx context.Context) {
	defer close(b.done)
	defer func() {
		b.statusMu.Lock()
		b.status.Running = false
		b.statusMu.Unlock()
		b.deps.Log.Infof("[bot %s] stopped", b.userID)
	}()

	b.safeCycle(ctx)
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.safeCycle(ctx)
		}
	}
}

// safeCycle runs one cycle and keeps a failing tick from killing the loop.
func (b *Bot) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			b.deps.Log.Errorf("[bot %s] cycle panic: %v", b.userID, r)
		}
	}()
	if ctx.Err() != nil {
		return
	}
	b.cycle(ctx)
}

// cycle is one tick: guards, fetch, analyze, score and conditionally trade.
// Steps execute strictly in the order fetch, analyze, size, place, persist,
// update-status.
func (b *Bot) cycle(ctx context.Context) {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()

	now := b.deps.now()
	today := now.UTC().Format(dayLayout)

	b.statusMu.Lock()
	if b.status.Day != today {
		b.status.Day = today
		b.status.TradesToday = 0
		b.status.DailyPnL = 0
	}
	b.statusMu.Unlock()

	if pnl, err := b.dailyRealizedPnL(ctx, today); err == nil {
		b.statusMu.Lock()
		b.status.DailyPnL = pnl
		b.statusMu.Unlock()
	} else {
		b.deps.Log.Warnf("[bot %s] daily pnl refresh failed: %v", b.userID, err)
	}

	settings, err := b.deps.Store.RiskSettings(ctx, b.userID)
	if err != nil {
		b.deps.Log.Warnf("[bot %s] risk settings unavailable, using config: %v", b.userID, err)
		settings = nil
	}
	maxTrades := b.cfg.MaxTradesPerDay
	maxLoss := b.cfg.MaxDailyLoss
	riskPct := b.cfg.PositionSizePct
	minRR := 0.0
	maxOpen := 0
	if settings != nil {
		if settings.RiskPercent > 0 {
			riskPct = settings.RiskPercent
		}
		if settings.MaxDailyLoss > 0 {
			maxLoss = settings.MaxDailyLoss
		}
		minRR = settings.MinRiskReward
		maxOpen = settings.MaxOpenTrades
	}

	st := b.Status()
	if st.TradesToday >= maxTrades {
		b.record(now, "hold", 0, fmt.Sprintf("daily trade cap reached (%d/%d)", st.TradesToday, maxTrades))
		return
	}
	if st.DailyPnL <= -maxLoss {
		b.record(now, "hold", 0, fmt.Sprintf("daily loss cap reached (%.2f <= -%.2f), stopping", st.DailyPnL, maxLoss))
		b.deps.Log.Warnf("[bot %s] daily loss cap breached, auto-stopping", b.userID)
		b.Stop()
		return
	}

	ticker, err := retry.Value(ctx, retry.DefaultAttempts, retry.DefaultBaseDelay, func() (*model.Ticker, error) {
		return b.deps.Market.FetchTicker(ctx, b.account, b.cfg.Symbol)
	})
	if err != nil {
		b.record(now, "hold", 0, fmt.Sprintf("ticker fetch failed: %v", err))
		return
	}
	candles, err := retry.Value(ctx, retry.DefaultAttempts, retry.DefaultBaseDelay, func() ([]model.Candle, error) {
		return b.deps.Market.FetchOHLCV(ctx, b.account, b.cfg.Symbol, b.cfg.Timeframe, b.cfg.CandleLimit)
	})
	if err != nil {
		b.record(now, "hold", 0, fmt.Sprintf("candle fetch failed: %v", err))
		return
	}
	if len(candles) < b.cfg.MinCandles {
		b.record(now, "hold", 0, fmt.Sprintf("insufficient history (%d candles, need %d)", len(candles), b.cfg.MinCandles))
		return
	}

	snap, err := indicator.Compute(candles)
	if err != nil {
		b.record(now, "hold", 0, fmt.Sprintf("indicator computation failed: %v", err))
		return
	}

	var patterns []pattern.Result
	if b.cfg.UsePatterns {
		window := candles
		if len(window) > b.cfg.PatternWindow {
			window = window[len(window)-b.cfg.PatternWindow:]
		}
		patterns = pattern.Detect(window, snap.Trend)
	}

	var rec *advisor.Recommendation
	advisorDegraded := false
	if b.cfg.UseAdvisor && b.deps.Oracle != nil {
		rec, err = retry.Value(ctx, retry.DefaultAttempts, retry.DefaultBaseDelay, func() (*advisor.Recommendation, error) {
			return b.deps.Oracle.Recommend(ctx, advisor.MarketContext{
				Symbol:    b.cfg.Symbol,
				Timeframe: b.cfg.Timeframe,
				Price:     ticker.Last,
				Snapshot:  snap,
				Patterns:  patterns,
			})
		})
		if err != nil {
			b.deps.Log.Warnf("[bot %s] advisory call failed, falling back to rule-based score: %v", b.userID, err)
			rec = nil
			advisorDegraded = true
		}
	}

	decision := compose(&b.cfg, snap, patterns, rec)
	if advisorDegraded {
		decision.Rationale += "; advisor unavailable, rule-based score only"
	}

	if decision.Action == advisor.ActionHold || decision.Confidence < b.cfg.MinConfidence {
		b.record(now, string(decision.Action), decision.Confidence, decision.Rationale)
		return
	}

	open, err := b.deps.Store.OpenTradeForSymbol(ctx, b.userID, b.cfg.Symbol)
	if err != nil {
		b.record(now, string(decision.Action), decision.Confidence, fmt.Sprintf("open trade lookup failed: %v", err))
		return
	}
	if open != nil {
		b.record(now, string(decision.Action), decision.Confidence,
			fmt.Sprintf("%s signal (%.0f%%) skipped: position already open for %s", decision.Action, decision.Confidence, b.cfg.Symbol))
		return
	}
	if maxOpen > 0 {
		count, err := b.openTradeCount(ctx)
		if err == nil && count >= maxOpen {
			b.record(now, string(decision.Action), decision.Confidence,
				fmt.Sprintf("%s signal skipped: open trade limit reached (%d/%d)", decision.Action, count, maxOpen))
			return
		}
	}

	b.executeDecision(ctx, now, ticker, snap, decision, riskPct, minRR)
}

// executeDecision sizes the position, places the order and persists the
// trade record.
func (b *Bot) executeDecision(ctx context.Context, now time.Time, ticker *model.Ticker, snap *indicator.Snapshot, decision Decision, riskPct, minRR float64) {
	side := model.SideBuy
	if decision.Action == advisor.ActionSell {
		side = model.SideSell
	}
	entry := ticker.Last

	var stop, target float64
	if b.cfg.UseATRStops && indicator.Defined(snap.ATR) && snap.ATR > 0 {
		stop = risk.StopFromATR(entry, snap.ATR, b.cfg.ATRMultiplier, side)
		target = risk.TargetFromRR(entry, stop, b.cfg.RiskReward, side)
	} else if side == model.SideBuy {
		stop = entry * (1 - b.cfg.StopLossPct/100)
		target = entry * (1 + b.cfg.TakeProfitPct/100)
	} else {
		stop = entry * (1 + b.cfg.StopLossPct/100)
		target = entry * (1 - b.cfg.TakeProfitPct/100)
	}

	if minRR > 0 && !risk.WorthTaking(entry, stop, target, minRR) {
		b.record(now, string(decision.Action), decision.Confidence,
			fmt.Sprintf("%s signal skipped: reward:risk below %.1f", decision.Action, minRR))
		return
	}

	balances, err := retry.Value(ctx, retry.DefaultAttempts, retry.DefaultBaseDelay, func() (map[string]model.Balance, error) {
		return b.deps.Balance.FetchBalance(ctx, b.account)
	})
	if err != nil {
		b.record(now, string(decision.Action), decision.Confidence, fmt.Sprintf("balance fetch failed: %v", err))
		return
	}
	available := balances[b.cfg.QuoteAsset].Free

	sizing, err := risk.CalculatePositionSize(available, riskPct, entry, stop)
	if err != nil {
		b.record(now, string(decision.Action), decision.Confidence, fmt.Sprintf("sizing rejected: %v", err))
		return
	}

	req := exchange.OrderRequest{
		Symbol:     b.cfg.Symbol,
		Side:       side,
		Type:       "market",
		Amount:     sizing.Quantity,
		StopLoss:   stop,
		TakeProfit: target,
		Leverage:   b.cfg.Leverage,
		MarginMode: b.cfg.MarginMode,
	}
	result, placeErr := retry.Value(ctx, retry.DefaultAttempts, retry.DefaultBaseDelay, func() (*exchange.OrderResult, error) {
		return b.deps.Exec.PlaceOrder(ctx, b.account, req)
	})

	trade := datastore.TradeExecution{
		ID:         uuid.NewString(),
		UserID:     b.userID,
		Symbol:     b.cfg.Symbol,
		Side:       side,
		Type:       req.Type,
		Amount:     sizing.Quantity,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Leverage:   b.cfg.Leverage,
		MarginMode: b.cfg.MarginMode,
		CreatedAt:  now,
	}

	var rationale string
	switch {
	case placeErr != nil:
		trade.Status = datastore.StatusFailed
		trade.Error = placeErr.Error()
		rationale = fmt.Sprintf("%s order failed: %v", decision.Action, placeErr)
	case !result.Success:
		trade.Status = datastore.StatusFailed
		trade.Error = result.Error
		rationale = fmt.Sprintf("%s order rejected: %s", decision.Action, result.Error)
	default:
		trade.Status = datastore.StatusFilled
		if result.Price > 0 {
			trade.EntryPrice = result.Price
		}
		rationale = fmt.Sprintf("%s executed at %.4f, qty %.6f: %s", decision.Action, trade.EntryPrice, trade.Amount, decision.Rationale)
	}

	if err := b.deps.Store.Insert(ctx, &trade); err != nil {
		b.deps.Log.Errorf("[bot %s] persisting trade %s failed: %v", b.userID, trade.ID, err)
	}

	b.statusMu.Lock()
	b.status.TradesToday++
	b.statusMu.Unlock()
	b.record(now, string(decision.Action), decision.Confidence, rationale)

	if trade.Status == datastore.StatusFilled {
		event := notify.Event{
			Title: fmt.Sprintf("Trade opened: %s %s", decision.Action, b.cfg.Symbol),
			Message: fmt.Sprintf("entry %.4f, stop %.4f, target %.4f, qty %.6f (confidence %.0f%%)",
				trade.EntryPrice, stop, target, trade.Amount, decision.Confidence),
		}
		if err := b.deps.Notifier.Send(ctx, b.userID, event); err != nil {
			b.deps.Log.Warnf("[bot %s] entry notification failed: %v", b.userID, err)
		}
	}
}

func (b *Bot) record(now time.Time, signal string, confidence float64, rationale string) {
	b.statusMu.Lock()
	b.status.LastAnalysisAt = now
	b.status.LastSignal = signal
	b.status.LastConfidence = confidence
	b.status.LastRationale = rationale
	b.statusMu.Unlock()
	b.deps.Log.Debugf("[bot %s] %s (%.0f%%): %s", b.userID, signal, confidence, rationale)
}

// dailyRealizedPnL sums the realized pnl of this user's trades closed today.
func (b *Bot) dailyRealizedPnL(ctx context.Context, today string) (float64, error) {
	closed, err := b.deps.Store.ClosedTrades(ctx, b.userID)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, t := range closed {
		if t.PnL != nil && t.ClosedAt != nil && t.ClosedAt.UTC().Format(dayLayout) == today {
			sum += *t.PnL
		}
	}
	return sum, nil
}

func (b *Bot) openTradeCount(ctx context.Context) (int, error) {
	open, err := b.deps.Store.OpenTrades(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, t := range open {
		if t.UserID == b.userID {
			count++
		}
	}
	return count, nil
}
