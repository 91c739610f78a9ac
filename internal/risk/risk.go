// Package risk implements position sizing, stop/target placement and
// portfolio statistics. Everything here is pure computation: bad inputs
// produce validation errors, never panics.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/your-org/candle-trade-bot/internal/model"
)

// ErrInvalidParameter marks a sizing request rejected by validation.
var ErrInvalidParameter = errors.New("invalid risk parameter")

// MaxRiskPercent caps the per-trade risk budget.
const MaxRiskPercent = 10.0

// PositionSize is the outcome of a sizing calculation. It is never persisted,
// only used to build an order.
type PositionSize struct {
	Quantity      float64
	RiskAmount    float64
	PositionValue float64
}

// CalculatePositionSize derives an order quantity from the account balance,
// the risk percentage and the distance between entry and stop:
// quantity = (balance * riskPct/100) / |entry - stop|.
func CalculatePositionSize(balance, riskPct, entry, stop float64) (*PositionSize, error) {
	if balance <= 0 {
		return nil, fmt.Errorf("%w: balance must be positive, got %.2f", ErrInvalidParameter, balance)
	}
	if riskPct <= 0 || riskPct > MaxRiskPercent {
		return nil, fmt.Errorf("%w: risk percent must be in (0, %.0f], got %.2f", ErrInvalidParameter, MaxRiskPercent, riskPct)
	}
	if entry <= 0 || stop <= 0 {
		return nil, fmt.Errorf("%w: prices must be positive (entry=%.4f stop=%.4f)", ErrInvalidParameter, entry, stop)
	}
	if entry == stop {
		return nil, fmt.Errorf("%w: entry equals stop, risk per unit is zero", ErrInvalidParameter)
	}

	riskAmount := balance * riskPct / 100
	quantity := riskAmount / math.Abs(entry-stop)
	return &PositionSize{
		Quantity:      quantity,
		RiskAmount:    riskAmount,
		PositionValue: quantity * entry,
	}, nil
}

// StopFromATR places a stop at entry -/+ atr*multiplier depending on side.
func StopFromATR(entry, atr, multiplier float64, side model.Side) float64 {
	if side == model.SideBuy {
		return entry - atr*multiplier
	}
	return entry + atr*multiplier
}

// TargetFromRR places a take-profit at entry +/- |entry-stop|*ratio.
func TargetFromRR(entry, stop, ratio float64, side model.Side) float64 {
	riskPerUnit := math.Abs(entry - stop)
	if side == model.SideBuy {
		return entry + riskPerUnit*ratio
	}
	return entry - riskPerUnit*ratio
}

// WorthTaking reports whether the reward:risk ratio of a planned trade clears
// the caller's minimum.
func WorthTaking(entry, stop, target, minRR float64) bool {
	riskPerUnit := math.Abs(entry - stop)
	if riskPerUnit == 0 {
		return false
	}
	return math.Abs(target-entry)/riskPerUnit >= minRR
}

// RMultiple expresses a realized trade outcome as a multiple of the initial
// per-unit risk (Van Tharp). R=1 means the trade returned the amount risked.
func RMultiple(entry, exit, stop float64, side model.Side) float64 {
	riskPerUnit := math.Abs(entry - stop)
	if riskPerUnit == 0 {
		return 0
	}
	profit := exit - entry
	if side == model.SideSell {
		profit = entry - exit
	}
	return profit / riskPerUnit
}

// Expectancy returns the mean R-multiple across a trade history.
func Expectancy(rMultiples []float64) float64 {
	if len(rMultiples) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rMultiples {
		sum += r
	}
	return sum / float64(len(rMultiples))
}

// WinRate returns the fraction of trades with a positive R-multiple.
func WinRate(rMultiples []float64) float64 {
	if len(rMultiples) == 0 {
		return 0
	}
	wins := 0
	for _, r := range rMultiples {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(rMultiples))
}

// KellyFraction computes a half-Kelly position fraction from win rate and the
// average win/loss sizes, clamped to [0, 0.05] of the account. It is used as
// an advisory cap only, never as the sole sizing method.
func KellyFraction(winRate, avgWin, avgLoss float64) float64 {
	if winRate <= 0 || avgWin <= 0 {
		return 0
	}
	kelly := winRate
	if avgLoss > 0 {
		kelly = winRate - (1-winRate)/(avgWin/avgLoss)
	}
	kelly *= 0.5
	if kelly < 0 {
		return 0
	}
	if kelly > 0.05 {
		return 0.05
	}
	return kelly
}

// MaxDrawdown returns the largest peak-to-trough percentage decline over an
// equity curve.
func MaxDrawdown(equity []float64) float64 {
	var peak, maxDD float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio computes (mean return - riskFree) / stddev(returns), returning
// 0 when the deviation is zero.
func SharpeRatio(returns []float64, riskFree float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	sd := math.Sqrt(variance)
	if sd == 0 {
		return 0
	}
	return (mean - riskFree) / sd
}
