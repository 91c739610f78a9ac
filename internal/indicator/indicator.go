// Package indicator implements pure technical indicator calculations over
// price series. Every function returns a series aligned index-for-index with
// its input; positions before a period's warm-up hold NaN and must be treated
// as "no signal" by consumers, never as zero.
package indicator

import (
	"errors"
	"math"

	"github.com/your-org/candle-trade-bot/internal/model"
)

// ErrInsufficientData indicates a series too short for the requested analysis.
var ErrInsufficientData = errors.New("insufficient data")

// Defined reports whether an indicator value is usable.
func Defined(v float64) bool { return !math.IsNaN(v) }

// SMA computes the simple moving average. The first period-1 values are NaN.
func SMA(data []float64, period int) []float64 {
	out := nanSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	var sum float64
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average, seeded with the SMA of the
// first period values. alpha = 2/(period+1).
func EMA(data []float64, period int) []float64 {
	out := nanSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	var seed float64
	for _, v := range data[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)
	alpha := 2.0 / float64(period+1)
	for i := period; i < len(data); i++ {
		out[i] = out[i-1]*(1-alpha) + data[i]*alpha
	}
	return out
}

// RSI computes the relative strength index with Wilder smoothing. The first
// average gain/loss is a simple mean over period steps; subsequent averages
// are smoothed. When the average loss is zero RSI saturates at 100, so a
// constant series reads 100, not 50.
func RSI(data []float64, period int) []float64 {
	out := nanSeries(len(data))
	if period <= 0 || len(data) < period+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := data[i] - data[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	n := float64(period)
	for i := period + 1; i < len(data); i++ {
		change := data[i] - data[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes the MACD line (EMA fast - EMA slow), its signal line and the
// histogram. The signal line is an EMA over the MACD line's defined portion,
// left-padded with NaN to keep alignment with the input.
func MACD(data []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	macd = nanSeries(len(data))
	emaFast := EMA(data, fast)
	emaSlow := EMA(data, slow)
	for i := range data {
		if Defined(emaFast[i]) && Defined(emaSlow[i]) {
			macd[i] = emaFast[i] - emaSlow[i]
		}
	}
	signalLine = emaOverDefined(macd, signal)
	hist = nanSeries(len(data))
	for i := range data {
		if Defined(macd[i]) && Defined(signalLine[i]) {
			hist[i] = macd[i] - signalLine[i]
		}
	}
	return macd, signalLine, hist
}

// BollingerBands computes the middle (SMA), upper and lower bands at
// k standard deviations over the same trailing window.
func BollingerBands(data []float64, period int, k float64) (upper, middle, lower []float64) {
	middle = SMA(data, period)
	upper = nanSeries(len(data))
	lower = nanSeries(len(data))
	for i := period - 1; i < len(data); i++ {
		if !Defined(middle[i]) {
			continue
		}
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := data[j] - middle[i]
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + k*sd
		lower[i] = middle[i] - k*sd
	}
	return upper, middle, lower
}

// ATR computes the average true range as an EMA of the true-range series.
// The true range of the first candle is its high-low span.
func ATR(candles []model.Candle, period int) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			tr[i] = c.High - c.Low
			continue
		}
		prevClose := candles[i-1].Close
		tr[i] = math.Max(c.High-c.Low,
			math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}
	return EMA(tr, period)
}

// Stochastic computes the slow stochastic oscillator: rawK over the trailing
// window, %K = SMA(rawK, smoothK), %D = SMA(%K, smoothD).
func Stochastic(candles []model.Candle, period, smoothK, smoothD int) (k, d []float64) {
	rawK := nanSeries(len(candles))
	for i := period - 1; i < len(candles); i++ {
		lowest := math.Inf(1)
		highest := math.Inf(-1)
		for j := i - period + 1; j <= i; j++ {
			lowest = math.Min(lowest, candles[j].Low)
			highest = math.Max(highest, candles[j].High)
		}
		if highest == lowest {
			rawK[i] = 50
			continue
		}
		rawK[i] = (candles[i].Close - lowest) / (highest - lowest) * 100
	}
	k = smaOverDefined(rawK, smoothK)
	d = smaOverDefined(k, smoothD)
	return k, d
}

// Trend classifies the market by comparing a short and a long SMA at the end
// of the series. The short average must exceed the long by more than 2% for
// an uptrend (symmetric for a downtrend); undefined averages read as sideways.
func Trend(data []float64, short, long int) model.Trend {
	shortSMA := SMA(data, short)
	longSMA := SMA(data, long)
	if len(data) == 0 {
		return model.TrendSideways
	}
	s, l := shortSMA[len(data)-1], longSMA[len(data)-1]
	if !Defined(s) || !Defined(l) || l == 0 {
		return model.TrendSideways
	}
	switch {
	case s > l*1.02:
		return model.TrendUp
	case s < l*0.98:
		return model.TrendDown
	default:
		return model.TrendSideways
	}
}

// SupportResistance returns the lowest low and highest high over the trailing
// lookback candles.
func SupportResistance(candles []model.Candle, lookback int) (support, resistance float64, err error) {
	if len(candles) == 0 {
		return 0, 0, ErrInsufficientData
	}
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	support = math.Inf(1)
	resistance = math.Inf(-1)
	for _, c := range candles[start:] {
		support = math.Min(support, c.Low)
		resistance = math.Max(resistance, c.High)
	}
	return support, resistance, nil
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// emaOverDefined applies EMA to the defined tail of a series and left-pads
// the result with NaN to restore alignment.
func emaOverDefined(series []float64, period int) []float64 {
	return overDefined(series, period, EMA)
}

// smaOverDefined applies SMA to the defined tail of a series and left-pads
// the result with NaN to restore alignment.
func smaOverDefined(series []float64, period int) []float64 {
	return overDefined(series, period, SMA)
}

func overDefined(series []float64, period int, fn func([]float64, int) []float64) []float64 {
	out := nanSeries(len(series))
	first := len(series)
	for i, v := range series {
		if Defined(v) {
			first = i
			break
		}
	}
	if first == len(series) {
		return out
	}
	copy(out[first:], fn(series[first:], period))
	return out
}
