package datastore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/your-org/candle-trade-bot/internal/risk"
)

// PortfolioReport summarizes a user's closed trades.
type PortfolioReport struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	Expectancy    float64 // mean R-multiple
	MaxDrawdown   float64 // percent
	SharpeRatio   float64
	TotalPnL      decimal.Decimal
	AverageWin    decimal.Decimal
	AverageLoss   decimal.Decimal
	KellyFraction float64
}

// BuildPortfolioReport computes portfolio statistics on demand from a user's
// closed trades. startingBalance anchors the equity curve for the drawdown
// calculation.
func BuildPortfolioReport(ctx context.Context, store TradeStore, userID string, startingBalance float64) (*PortfolioReport, error) {
	trades, err := store.ClosedTrades(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("building portfolio report: %w", err)
	}

	report := &PortfolioReport{TotalPnL: decimal.Zero}
	if len(trades) == 0 {
		return report, nil
	}

	var (
		rMultiples []float64
		returns    []float64
		equity     = []float64{startingBalance}
		winSum     = decimal.Zero
		lossSum    = decimal.Zero
		balance    = startingBalance
	)
	for _, t := range trades {
		if t.PnL == nil {
			continue
		}
		pnl := *t.PnL
		report.TotalTrades++
		report.TotalPnL = report.TotalPnL.Add(decimal.NewFromFloat(pnl))
		if pnl > 0 {
			report.WinningTrades++
			winSum = winSum.Add(decimal.NewFromFloat(pnl))
		} else {
			report.LosingTrades++
			lossSum = lossSum.Add(decimal.NewFromFloat(-pnl))
		}

		if t.ExitPrice != nil && t.StopLoss > 0 {
			rMultiples = append(rMultiples, risk.RMultiple(t.EntryPrice, *t.ExitPrice, t.StopLoss, t.Side))
		}
		if t.PnLPercent != nil {
			returns = append(returns, *t.PnLPercent/100)
		}
		balance += pnl
		equity = append(equity, balance)
	}
	if report.TotalTrades == 0 {
		return report, nil
	}

	report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
	report.Expectancy = risk.Expectancy(rMultiples)
	report.MaxDrawdown = risk.MaxDrawdown(equity)
	report.SharpeRatio = risk.SharpeRatio(returns, 0)
	if report.WinningTrades > 0 {
		report.AverageWin = winSum.DivRound(decimal.NewFromInt(int64(report.WinningTrades)), 8)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = lossSum.DivRound(decimal.NewFromInt(int64(report.LosingTrades)), 8)
	}
	avgWin, _ := report.AverageWin.Float64()
	avgLoss, _ := report.AverageLoss.Float64()
	report.KellyFraction = risk.KellyFraction(report.WinRate, avgWin, avgLoss)

	return report, nil
}
