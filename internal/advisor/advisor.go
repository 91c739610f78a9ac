// Package advisor defines the optional advisory oracle consulted for signal
// confirmation. The oracle returns a structured recommendation only; its
// output never reaches order execution directly and failures must degrade to
// rule-based scoring at the caller.
package advisor

import (
	"context"

	"github.com/your-org/candle-trade-bot/internal/indicator"
	"github.com/your-org/candle-trade-bot/internal/pattern"
)

// Action is the advisory opinion direction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// MarketContext is the state handed to the oracle for one decision.
type MarketContext struct {
	Symbol    string
	Timeframe string
	Price     float64
	Snapshot  *indicator.Snapshot
	Patterns  []pattern.Result
}

// Recommendation is the oracle's structured opinion.
type Recommendation struct {
	Action     Action  `json:"recommendation"`
	Confidence float64 `json:"confidence"` // 0-100
	Reasoning  string  `json:"reasoning"`
}

// Oracle produces a recommendation for a market context. Implementations are
// treated as unreliable: callers retry and then fall back without one.
type Oracle interface {
	Recommend(ctx context.Context, mc MarketContext) (*Recommendation, error)
}

// Static is an Oracle returning a fixed recommendation, or a fixed error.
// It exists for tests and for running without an advisory backend.
type Static struct {
	Rec *Recommendation
	Err error
}

// Recommend returns the configured recommendation.
func (s *Static) Recommend(ctx context.Context, mc MarketContext) (*Recommendation, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Rec, nil
}
