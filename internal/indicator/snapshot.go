package indicator

import (
	"github.com/your-org/candle-trade-bot/internal/model"
)

// Default indicator parameters.
const (
	DefaultRSIPeriod      = 14
	DefaultMACDFast       = 12
	DefaultMACDSlow       = 26
	DefaultMACDSignal     = 9
	DefaultBBPeriod       = 20
	DefaultBBStdDev       = 2.0
	DefaultATRPeriod      = 14
	DefaultStochPeriod    = 14
	DefaultStochSmooth    = 3
	DefaultShortSMAPeriod = 20
	DefaultLongSMAPeriod  = 50
	DefaultSRLookback     = 20
)

// Snapshot holds the latest value of every indicator for one candle window.
// Individual fields may be NaN when the window is too short for their period.
type Snapshot struct {
	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	ATR        float64
	StochK     float64
	StochD     float64
	SMA20      float64
	SMA50      float64
	EMA20      float64
	EMA50      float64
	Trend      model.Trend
	Support    float64
	Resistance float64
	LastPrice  float64
}

// Compute evaluates all indicators over the candle window with default
// parameters and returns their most recent values.
func Compute(candles []model.Candle) (*Snapshot, error) {
	if len(candles) < 2 {
		return nil, ErrInsufficientData
	}
	closes := model.Closes(candles)

	macd, macdSignal, macdHist := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	upper, middle, lower := BollingerBands(closes, DefaultBBPeriod, DefaultBBStdDev)
	stochK, stochD := Stochastic(candles, DefaultStochPeriod, DefaultStochSmooth, DefaultStochSmooth)
	support, resistance, err := SupportResistance(candles, DefaultSRLookback)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		RSI:        last(RSI(closes, DefaultRSIPeriod)),
		MACD:       last(macd),
		MACDSignal: last(macdSignal),
		MACDHist:   last(macdHist),
		BBUpper:    last(upper),
		BBMiddle:   last(middle),
		BBLower:    last(lower),
		ATR:        last(ATR(candles, DefaultATRPeriod)),
		StochK:     last(stochK),
		StochD:     last(stochD),
		SMA20:      last(SMA(closes, DefaultShortSMAPeriod)),
		SMA50:      last(SMA(closes, DefaultLongSMAPeriod)),
		EMA20:      last(EMA(closes, DefaultShortSMAPeriod)),
		EMA50:      last(EMA(closes, DefaultLongSMAPeriod)),
		Trend:      Trend(closes, DefaultShortSMAPeriod, DefaultLongSMAPeriod),
		Support:    support,
		Resistance: resistance,
		LastPrice:  closes[len(closes)-1],
	}, nil
}

func last(series []float64) float64 {
	return series[len(series)-1]
}
