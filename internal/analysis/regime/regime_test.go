package regime

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verge/internal/market"
)

func build(n int, price func(i int) float64, spread float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		p := price(i)
		out[i] = market.Candle{OpenTime: int64(i) * 60_000, Open: p, High: p * (1 + spread), Low: p * (1 - spread), Close: p}
	}
	return out
}

func TestClassifyTrends(t *testing.T) {
	c := NewClassifier(Thresholds{})

	bull, err := c.Classify(build(120, func(i int) float64 { return 100 * math.Pow(1.01, float64(i)) }, 0.002))
	require.NoError(t, err)
	assert.Equal(t, market.RegimeBullTrend, bull.Type)
	assert.Greater(t, bull.TrendStrength, 50.0)

	bear, err := c.Classify(build(120, func(i int) float64 { return 100 * math.Pow(0.99, float64(i)) }, 0.002))
	require.NoError(t, err)
	assert.Equal(t, market.RegimeBearTrend, bear.Type)
}

func TestClassifyQuietMarketIsLowVolatility(t *testing.T) {
	c := NewClassifier(Thresholds{})
	flat := build(120, func(int) float64 { return 100 }, 0.0005)
	r, err := c.Classify(flat)
	require.NoError(t, err)
	assert.Equal(t, market.RegimeLowVolatility, r.Type)
}

func TestClassifyNeedsHistory(t *testing.T) {
	_, err := NewClassifier(Thresholds{}).Classify(build(10, func(int) float64 { return 1 }, 0.01))
	assert.Error(t, err)
}

func TestLocalProvider(t *testing.T) {
	var p market.AnalyticsProvider = NewLocal(Thresholds{})
	candles := build(120, func(i int) float64 { return 100 * math.Pow(1.01, float64(i)) }, 0.002)

	r, err := p.DetectRegime(context.Background(), "BTCUSDT", "15m", candles)
	require.NoError(t, err)
	assert.Equal(t, market.RegimeBullTrend, r.Type)

	tech, err := p.AnalyzeTechnicals(context.Background(), "BTCUSDT", "15m", candles)
	require.NoError(t, err)
	assert.Greater(t, tech.RSI, 70.0)
}
