// Package pattern recognizes candlestick patterns over small windows of
// recent candles. Rules are independent and may co-fire; Detect returns the
// union of everything that matched, never a single "best" pattern.
package pattern

import (
	"github.com/your-org/candle-trade-bot/internal/model"
)

// Type classifies the direction a pattern implies.
type Type string

const (
	Bullish Type = "bullish"
	Bearish Type = "bearish"
	Neutral Type = "neutral"
)

// Result is one detected pattern.
type Result struct {
	Name        string
	Type        Type
	Confidence  float64 // 0-100
	Description string
}

// Detect evaluates the most recent candles of the window against all shape
// rules. The trend context gates the single-candle reversal rules: a hammer
// only counts in a downtrend, a shooting star only in an uptrend. Windows too
// short for a rule simply skip it.
func Detect(candles []model.Candle, trend model.Trend) []Result {
	if len(candles) == 0 {
		return nil
	}
	var results []Result

	cur := candles[len(candles)-1]
	if r, ok := doji(cur); ok {
		results = append(results, r)
	}
	if trend == model.TrendDown {
		if r, ok := hammer(cur); ok {
			results = append(results, r)
		}
	}
	if trend == model.TrendUp {
		if r, ok := shootingStar(cur); ok {
			results = append(results, r)
		}
	}

	if len(candles) >= 2 {
		prev := candles[len(candles)-2]
		for _, rule := range []func(model.Candle, model.Candle) (Result, bool){
			bullishEngulfing, bearishEngulfing, piercingLine, darkCloudCover,
		} {
			if r, ok := rule(prev, cur); ok {
				results = append(results, r)
			}
		}
	}

	if len(candles) >= 3 {
		first := candles[len(candles)-3]
		second := candles[len(candles)-2]
		for _, rule := range []func(model.Candle, model.Candle, model.Candle) (Result, bool){
			morningStar, eveningStar, threeWhiteSoldiers, threeBlackCrows,
		} {
			if r, ok := rule(first, second, cur); ok {
				results = append(results, r)
			}
		}
	}

	return results
}

func doji(c model.Candle) (Result, bool) {
	if c.Range() == 0 || c.Body()/c.Range() >= 0.10 {
		return Result{}, false
	}
	return Result{
		Name:        "Doji",
		Type:        Neutral,
		Confidence:  80,
		Description: "open and close nearly equal, indecision",
	}, true
}

func hammer(c model.Candle) (Result, bool) {
	if c.Range() == 0 || c.Body() == 0 {
		return Result{}, false
	}
	if c.LowerShadow() >= 2*c.Body() && c.UpperShadow() < 0.5*c.Body() && c.Body()/c.Range() < 0.3 {
		return Result{
			Name:        "Hammer",
			Type:        Bullish,
			Confidence:  75,
			Description: "long lower shadow after a decline, potential reversal up",
		}, true
	}
	return Result{}, false
}

func shootingStar(c model.Candle) (Result, bool) {
	if c.Range() == 0 || c.Body() == 0 {
		return Result{}, false
	}
	if c.UpperShadow() >= 2*c.Body() && c.LowerShadow() < 0.5*c.Body() && c.Body()/c.Range() < 0.3 {
		return Result{
			Name:        "Shooting Star",
			Type:        Bearish,
			Confidence:  75,
			Description: "long upper shadow after an advance, potential reversal down",
		}, true
	}
	return Result{}, false
}

func bullishEngulfing(prev, cur model.Candle) (Result, bool) {
	if prev.Bearish() && cur.Bullish() &&
		cur.Open < prev.Close && cur.Close > prev.Open {
		return Result{
			Name:        "Bullish Engulfing",
			Type:        Bullish,
			Confidence:  85,
			Description: "bullish body fully engulfs the prior bearish body",
		}, true
	}
	return Result{}, false
}

func bearishEngulfing(prev, cur model.Candle) (Result, bool) {
	if prev.Bullish() && cur.Bearish() &&
		cur.Open > prev.Close && cur.Close < prev.Open {
		return Result{
			Name:        "Bearish Engulfing",
			Type:        Bearish,
			Confidence:  85,
			Description: "bearish body fully engulfs the prior bullish body",
		}, true
	}
	return Result{}, false
}

func piercingLine(prev, cur model.Candle) (Result, bool) {
	mid := (prev.Open + prev.Close) / 2
	if prev.Bearish() && cur.Bullish() &&
		cur.Open < prev.Low && cur.Close > mid && cur.Close < prev.Open {
		return Result{
			Name:        "Piercing Line",
			Type:        Bullish,
			Confidence:  80,
			Description: "gap down then close above the prior midpoint",
		}, true
	}
	return Result{}, false
}

func darkCloudCover(prev, cur model.Candle) (Result, bool) {
	mid := (prev.Open + prev.Close) / 2
	if prev.Bullish() && cur.Bearish() &&
		cur.Open > prev.High && cur.Close < mid && cur.Close > prev.Open {
		return Result{
			Name:        "Dark Cloud Cover",
			Type:        Bearish,
			Confidence:  80,
			Description: "gap up then close below the prior midpoint",
		}, true
	}
	return Result{}, false
}

func morningStar(first, star, third model.Candle) (Result, bool) {
	mid := (first.Open + first.Close) / 2
	if first.Bearish() && star.Body() < first.Body()*0.5 &&
		third.Bullish() && third.Close > mid {
		return Result{
			Name:        "Morning Star",
			Type:        Bullish,
			Confidence:  90,
			Description: "decline, indecision star, then strong close up",
		}, true
	}
	return Result{}, false
}

func eveningStar(first, star, third model.Candle) (Result, bool) {
	mid := (first.Open + first.Close) / 2
	if first.Bullish() && star.Body() < first.Body()*0.5 &&
		third.Bearish() && third.Close < mid {
		return Result{
			Name:        "Evening Star",
			Type:        Bearish,
			Confidence:  90,
			Description: "advance, indecision star, then strong close down",
		}, true
	}
	return Result{}, false
}

func threeWhiteSoldiers(a, b, c model.Candle) (Result, bool) {
	if a.Bullish() && b.Bullish() && c.Bullish() &&
		b.Close > a.Close && c.Close > b.Close &&
		b.Open > a.Open && b.Open < a.Close &&
		c.Open > b.Open && c.Open < b.Close {
		return Result{
			Name:        "Three White Soldiers",
			Type:        Bullish,
			Confidence:  85,
			Description: "three advancing candles, each opening inside the prior body",
		}, true
	}
	return Result{}, false
}

func threeBlackCrows(a, b, c model.Candle) (Result, bool) {
	if a.Bearish() && b.Bearish() && c.Bearish() &&
		b.Close < a.Close && c.Close < b.Close &&
		b.Open < a.Open && b.Open > a.Close &&
		c.Open < b.Open && c.Open > b.Close {
		return Result{
			Name:        "Three Black Crows",
			Type:        Bearish,
			Confidence:  85,
			Description: "three declining candles, each opening inside the prior body",
		}, true
	}
	return Result{}, false
}
