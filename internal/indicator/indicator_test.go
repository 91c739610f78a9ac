package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/candle-trade-bot/internal/model"
)

func TestSMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	out := SMA(data, 3)

	require.Len(t, out, len(data))
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestSMA_ShortSeries(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	require.Len(t, out, 2)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	out := EMA(data, 3)

	require.Len(t, out, len(data))
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	// Seed is the SMA of the first three points.
	assert.InDelta(t, 2.0, out[2], 1e-9)
	// alpha = 0.5 for period 3.
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
	// No undefined entries after the seed index.
	for i := 2; i < len(out); i++ {
		assert.True(t, Defined(out[i]), "index %d", i)
	}
}

func TestRSI_Bounds(t *testing.T) {
	data := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10,
		45.42, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03,
		46.41, 46.22, 45.64}
	out := RSI(data, 14)

	require.Len(t, out, len(data))
	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(out[i]), "index %d should be warm-up", i)
	}
	for i := 14; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], 0.0)
		assert.LessOrEqual(t, out[i], 100.0)
	}
}

func TestRSI_ConstantSeriesSaturates(t *testing.T) {
	// No losses at all means avgLoss stays zero, which saturates RSI at 100.
	data := make([]float64, 20)
	for i := range data {
		data[i] = 50
	}
	out := RSI(data, 14)
	assert.Equal(t, 100.0, out[len(out)-1])
}

func TestRSI_AllLosses(t *testing.T) {
	data := make([]float64, 20)
	for i := range data {
		data[i] = 100 - float64(i)
	}
	out := RSI(data, 14)
	assert.InDelta(t, 0.0, out[len(out)-1], 1e-9)
}

func TestMACD_Alignment(t *testing.T) {
	data := make([]float64, 60)
	for i := range data {
		data[i] = 100 + float64(i)*0.5 + math.Sin(float64(i)/3)
	}
	macd, signal, hist := MACD(data, 12, 26, 9)

	require.Len(t, macd, len(data))
	require.Len(t, signal, len(data))
	require.Len(t, hist, len(data))

	// MACD is defined from the slow EMA's seed onwards.
	assert.True(t, math.IsNaN(macd[24]))
	assert.True(t, Defined(macd[25]))
	// The signal line needs nine defined MACD values.
	assert.True(t, math.IsNaN(signal[32]))
	assert.True(t, Defined(signal[33]))

	for i := range data {
		if Defined(hist[i]) {
			assert.InDelta(t, macd[i]-signal[i], hist[i], 1e-9, "index %d", i)
		}
	}
}

func TestBollingerBands_Ordering(t *testing.T) {
	data := make([]float64, 40)
	for i := range data {
		data[i] = 100 + 5*math.Sin(float64(i)/2)
	}
	upper, middle, lower := BollingerBands(data, 20, 2)

	defined := 0
	for i := range data {
		if !Defined(middle[i]) {
			assert.True(t, math.IsNaN(upper[i]))
			assert.True(t, math.IsNaN(lower[i]))
			continue
		}
		defined++
		assert.GreaterOrEqual(t, upper[i], middle[i], "index %d", i)
		assert.GreaterOrEqual(t, middle[i], lower[i], "index %d", i)
	}
	assert.Equal(t, 21, defined)
}

func TestATR_PositiveAndAligned(t *testing.T) {
	candles := testCandles(40)
	out := ATR(candles, 14)

	require.Len(t, out, len(candles))
	assert.True(t, math.IsNaN(out[12]))
	for i := 13; i < len(out); i++ {
		require.True(t, Defined(out[i]))
		assert.Greater(t, out[i], 0.0)
	}
}

func TestStochastic_Range(t *testing.T) {
	candles := testCandles(40)
	k, d := Stochastic(candles, 14, 3, 3)

	require.Len(t, k, len(candles))
	require.Len(t, d, len(candles))
	for i := range candles {
		if Defined(k[i]) {
			assert.GreaterOrEqual(t, k[i], 0.0)
			assert.LessOrEqual(t, k[i], 100.0)
		}
		if Defined(d[i]) {
			assert.GreaterOrEqual(t, d[i], 0.0)
			assert.LessOrEqual(t, d[i], 100.0)
		}
	}
	// %D needs two extra smoothing windows beyond rawK's warm-up.
	assert.True(t, Defined(d[len(d)-1]))
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want model.Trend
	}{
		{
			name: "uptrend",
			data: ramp(60, 100, 2),
			want: model.TrendUp,
		},
		{
			name: "downtrend",
			data: ramp(60, 220, -2),
			want: model.TrendDown,
		},
		{
			name: "flat is sideways",
			data: ramp(60, 100, 0),
			want: model.TrendSideways,
		},
		{
			name: "insufficient history is sideways",
			data: ramp(30, 100, 2),
			want: model.TrendSideways,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trend(tt.data, 20, 50))
		})
	}
}

func TestSupportResistance(t *testing.T) {
	candles := testCandles(40)
	support, resistance, err := SupportResistance(candles, 20)
	require.NoError(t, err)

	assert.Greater(t, resistance, support)
	for _, c := range candles[len(candles)-20:] {
		assert.GreaterOrEqual(t, c.Low, support)
		assert.LessOrEqual(t, c.High, resistance)
	}

	_, _, err = SupportResistance(nil, 20)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCompute(t *testing.T) {
	candles := testCandles(100)
	snap, err := Compute(candles)
	require.NoError(t, err)

	assert.True(t, Defined(snap.RSI))
	assert.True(t, Defined(snap.MACDHist))
	assert.True(t, Defined(snap.SMA50))
	assert.Equal(t, candles[len(candles)-1].Close, snap.LastPrice)
	assert.NotEmpty(t, snap.Trend)

	_, err = Compute(candles[:1])
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func testCandles(n int) []model.Candle {
	candles := make([]model.Candle, n)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := 100 + 3*math.Sin(float64(i)/4) + float64(i)*0.1
		candles[i] = model.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.3,
			Volume:    1000 + float64(i),
		}
	}
	return candles
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
