package bot

import (
	"fmt"
	"strings"

	"github.com/your-org/candle-trade-bot/internal/advisor"
	"github.com/your-org/candle-trade-bot/internal/indicator"
	"github.com/your-org/candle-trade-bot/internal/model"
	"github.com/your-org/candle-trade-bot/internal/pattern"
)

// Confidence contributions of each confirmation. The RSI condition alone
// clears the default execution threshold; everything else adds or subtracts.
const (
	baseConfidence       = 60.0
	macdConfirmBonus     = 20.0
	patternConfirmBonus  = 20.0
	advisorAgreeBonus    = 30.0
	advisorDisagreeMalus = 20.0
)

// Decision is one scored trading signal.
type Decision struct {
	Action     advisor.Action
	Confidence float64
	Rationale  string
}

// compose combines indicator, pattern and advisory inputs into a single
// scored decision. A nil recommendation means the advisory opinion is
// unavailable and its weight is simply omitted.
func compose(cfg *Config, snap *indicator.Snapshot, patterns []pattern.Result, rec *advisor.Recommendation) Decision {
	var reasons []string

	action := advisor.ActionHold
	if indicator.Defined(snap.RSI) {
		switch {
		case snap.RSI < cfg.Oversold && snap.Trend != model.TrendDown:
			action = advisor.ActionBuy
			reasons = append(reasons, fmt.Sprintf("RSI %.1f below %.0f in %s", snap.RSI, cfg.Oversold, snap.Trend))
		case snap.RSI > cfg.Overbought && snap.Trend != model.TrendUp:
			action = advisor.ActionSell
			reasons = append(reasons, fmt.Sprintf("RSI %.1f above %.0f in %s", snap.RSI, cfg.Overbought, snap.Trend))
		}
	} else {
		reasons = append(reasons, "RSI undefined, insufficient history")
	}

	if action == advisor.ActionHold {
		if len(reasons) == 0 {
			reasons = append(reasons, fmt.Sprintf("RSI %.1f neutral", snap.RSI))
		}
		return Decision{Action: advisor.ActionHold, Rationale: strings.Join(reasons, "; ")}
	}

	confidence := baseConfidence

	if cfg.UseMACD && indicator.Defined(snap.MACDHist) {
		if (action == advisor.ActionBuy && snap.MACDHist > 0) ||
			(action == advisor.ActionSell && snap.MACDHist < 0) {
			confidence += macdConfirmBonus
			reasons = append(reasons, "MACD histogram confirms")
		}
	}

	if cfg.UsePatterns {
		if p, ok := matchingPattern(patterns, action); ok {
			confidence += patternConfirmBonus
			reasons = append(reasons, fmt.Sprintf("%s pattern confirms", p.Name))
		}
	}

	if rec != nil {
		switch {
		case rec.Action == action:
			confidence += advisorAgreeBonus
			reasons = append(reasons, fmt.Sprintf("advisor agrees (%.0f%%)", rec.Confidence))
		case rec.Action != advisor.ActionHold:
			confidence -= advisorDisagreeMalus
			reasons = append(reasons, fmt.Sprintf("advisor disagrees (%s)", rec.Action))
		}
	}

	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}

	return Decision{
		Action:     action,
		Confidence: confidence,
		Rationale:  strings.Join(reasons, "; "),
	}
}

func matchingPattern(patterns []pattern.Result, action advisor.Action) (pattern.Result, bool) {
	want := pattern.Bullish
	if action == advisor.ActionSell {
		want = pattern.Bearish
	}
	for _, p := range patterns {
		if p.Type == want {
			return p, true
		}
	}
	return pattern.Result{}, false
}
