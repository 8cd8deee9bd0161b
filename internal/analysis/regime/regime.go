// Package regime classifies market conditions from candles and serves as
// the in-process analytics provider.
package regime

import (
	"context"
	"fmt"
	"math"

	"verge/internal/analysis/indicator"
	"verge/internal/market"
)

// Thresholds tune the classifier; zero values take the defaults.
type Thresholds struct {
	TrendADX      float64
	HighVolATRPct float64
	LowVolATRPct  float64
	FastEMA       int
	SlowEMA       int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TrendADX:      25,
		HighVolATRPct: 3.0,
		LowVolATRPct:  0.35,
		FastEMA:       20,
		SlowEMA:       50,
	}
}

type Classifier struct {
	th Thresholds
}

func NewClassifier(th Thresholds) *Classifier {
	def := DefaultThresholds()
	if th.TrendADX <= 0 {
		th.TrendADX = def.TrendADX
	}
	if th.HighVolATRPct <= 0 {
		th.HighVolATRPct = def.HighVolATRPct
	}
	if th.LowVolATRPct <= 0 {
		th.LowVolATRPct = def.LowVolATRPct
	}
	if th.FastEMA <= 0 {
		th.FastEMA = def.FastEMA
	}
	if th.SlowEMA <= th.FastEMA {
		th.SlowEMA = def.SlowEMA
	}
	return &Classifier{th: th}
}

// Classify labels the series. A strong ADX with aligned EMAs is a trend;
// otherwise ATR% decides between high volatility, low volatility and range.
func (c *Classifier) Classify(candles []market.Candle) (market.Regime, error) {
	if len(candles) < c.th.SlowEMA {
		return market.Regime{}, fmt.Errorf("need %d candles, have %d", c.th.SlowEMA, len(candles))
	}
	closes := market.Closes(candles)
	last := closes[len(closes)-1]
	adx, _ := indicator.ADX(candles, indicator.DefaultADXPeriod)
	atrPct, _ := indicator.ATRPercent(candles, indicator.DefaultATRPeriod)
	fast, _ := indicator.EMA(closes, c.th.FastEMA)
	slow, _ := indicator.EMA(closes, c.th.SlowEMA)

	out := market.Regime{
		TrendStrength:   math.Min(100, adx*2),
		VolatilityScore: math.Min(100, atrPct*20),
	}
	switch {
	case adx >= c.th.TrendADX && fast > slow && last > slow:
		out.Type = market.RegimeBullTrend
	case adx >= c.th.TrendADX && fast < slow && last < slow:
		out.Type = market.RegimeBearTrend
	case atrPct >= c.th.HighVolATRPct:
		out.Type = market.RegimeHighVolatility
	case atrPct > 0 && atrPct <= c.th.LowVolATRPct:
		out.Type = market.RegimeLowVolatility
	default:
		out.Type = market.RegimeRanging
	}
	return out, nil
}

// Local adapts the classifier and the indicator set to market.AnalyticsProvider.
type Local struct {
	classifier *Classifier
}

func NewLocal(th Thresholds) *Local {
	return &Local{classifier: NewClassifier(th)}
}

func (l *Local) DetectRegime(ctx context.Context, _, _ string, candles []market.Candle) (*market.Regime, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := l.classifier.Classify(candles)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (l *Local) AnalyzeTechnicals(ctx context.Context, _, _ string, candles []market.Candle) (*market.Technicals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := indicator.Compute(candles)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
