package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verge/internal/market"
	"verge/internal/types"
)

func TestEngineConfirmationGate(t *testing.T) {
	e := NewEngine()
	mc := goldenDayContext()
	state := SessionState{ID: "s1", Stage: types.StageEvaluating, Symbol: "BTCUSDT", Direction: types.DirectionLong}

	first := e.Evaluate(state, types.StyleDayTrading, mc)
	assert.Equal(t, Prepare, first.Decision)
	assert.Equal(t, 76, first.Score)
	assert.Contains(t, first.Reason, "Needs 2 cycles, have 1")
	assert.Equal(t, 1, first.Confirmations)

	state.Confirmations = first.Confirmations
	second := e.Evaluate(state, types.StyleDayTrading, mc)
	assert.Equal(t, Entry, second.Decision)
	assert.Equal(t, 2, second.Confirmations)
	assert.Equal(t, ConfidenceHigh, second.Confidence)
	require.True(t, second.HasEntryBand())
	assert.InDelta(t, 99.75, second.EntryMin, 1e-9)
	assert.InDelta(t, 100.25, second.EntryMax, 1e-9)
	assert.InDelta(t, 32.5, second.Weighted[CategoryTechnical], 1e-9)
	assert.InDelta(t, 25.0, second.Weighted[CategoryQuantitative], 1e-9)
}

func TestEngineDisqualifyingCycleResetsCounter(t *testing.T) {
	e := NewEngine()
	state := SessionState{ID: "s1", Stage: types.StageEvaluating, Direction: types.DirectionLong, Confirmations: 1}

	weak := goldenDayContext()
	weak.Technicals = &market.Technicals{RSI: 45, ADX: adx(40), MACDHistogram: 1}
	res := e.Evaluate(state, types.StyleDayTrading, weak)
	assert.Equal(t, Ignore, res.Decision)
	assert.Equal(t, 0, res.Confirmations)
	assert.Contains(t, res.Reason, "continuation zone")
	assert.Greater(t, res.RawScore, 0.0, "raw score is recorded for telemetry")

	state.Confirmations = res.Confirmations
	again := e.Evaluate(state, types.StyleDayTrading, goldenDayContext())
	assert.Equal(t, Prepare, again.Decision)
	assert.Equal(t, 1, again.Confirmations)
}

func TestEngineSetupInvalidated(t *testing.T) {
	mc := &MarketContext{
		Regime:     &market.Regime{Type: market.RegimeBullTrend, TrendStrength: 50},
		Technicals: &market.Technicals{RSI: 45, ADX: adx(30)},
		Candles:    flatCandles(10, 50),
	}
	res := NewEngine().Evaluate(SessionState{Stage: types.StagePrepared, Direction: types.DirectionLong, Confirmations: 1}, types.StyleScalping, mc)
	assert.Equal(t, Ignore, res.Decision)
	assert.True(t, res.Invalidated)
	assert.Contains(t, res.Reason, "SETUP INVALIDATED")
	assert.Contains(t, res.Reason, "RSI fell to 45")
	assert.Equal(t, 0, res.Confirmations)

	res = NewEngine().Evaluate(SessionState{Stage: types.StageEvaluating, Direction: types.DirectionLong}, types.StyleScalping, mc)
	assert.False(t, res.Invalidated, "invalidation is only checked while Prepared")
}

func TestEngineHigherTimeframeContradiction(t *testing.T) {
	htf := &MarketContext{Timeframe: "4h", Regime: &market.Regime{Type: market.RegimeBearTrend}}
	mc := goldenDayContext().WithHigherTimeframe(htf)

	res := NewEngine().Evaluate(SessionState{Direction: types.DirectionLong, Confirmations: 1}, types.StyleDayTrading, mc)
	assert.Equal(t, Prepare, res.Decision)
	assert.Equal(t, 69, res.Score)
	assert.Contains(t, res.Reason, "HTF contradiction")
	assert.Equal(t, 0, res.Confirmations)

	aligned := goldenDayContext().WithHigherTimeframe(&MarketContext{Timeframe: "4h", Regime: &market.Regime{Type: market.RegimeBullTrend}})
	res = NewEngine().Evaluate(SessionState{Direction: types.DirectionLong, Confirmations: 1}, types.StyleDayTrading, aligned)
	assert.Equal(t, Entry, res.Decision)
}

func TestEngineHigherTimeframeNeverDowngradesBelowPrepare(t *testing.T) {
	mc := goldenDayContext()
	mc.Technicals = &market.Technicals{RSI: 65, ADX: adx(40), MACDHistogram: -1}
	mc.Sentiment = nil
	mc = mc.WithHigherTimeframe(&MarketContext{Regime: &market.Regime{Type: market.RegimeBearTrend}})
	res := NewEngine().Evaluate(SessionState{Direction: types.DirectionLong}, types.StyleDayTrading, mc)
	assert.NotContains(t, res.Reason, "HTF contradiction")
	assert.Less(t, res.Decision, Entry)
}

func TestEngineGridExemptFromHigherTimeframe(t *testing.T) {
	mc := gridContext().WithHigherTimeframe(&MarketContext{Regime: &market.Regime{Type: market.RegimeBearTrend}})
	res := NewEngine().Evaluate(SessionState{Direction: types.DirectionLong, Confirmations: 1}, types.StyleGridTrading, mc)
	assert.Equal(t, Entry, res.Decision)
	assert.Equal(t, 74, res.Score)
}

func TestEnginePositionExtremeGreedIgnored(t *testing.T) {
	mc := goldenDayContext()
	mc.FearGreed = &market.FearGreed{Value: 85}
	res := NewEngine().Evaluate(SessionState{Direction: types.DirectionLong}, types.StylePositionTrading, mc)
	assert.Equal(t, Ignore, res.Decision)
	assert.Contains(t, res.Reason, "outside stable range")
}

func TestEngineRegimeGate(t *testing.T) {
	mc := goldenDayContext()
	mc.Regime = &market.Regime{Type: market.RegimeRanging}
	res := NewEngine().Evaluate(SessionState{Direction: types.DirectionLong}, types.StyleScalping, mc)
	assert.Equal(t, Ignore, res.Decision)
	assert.Contains(t, res.Reason, "Invalid regime 'Ranging' for Scalping")
}

func TestEngineShortMirrorsLong(t *testing.T) {
	e := NewEngine()
	long := e.Evaluate(SessionState{Direction: types.DirectionLong}, types.StyleDayTrading, goldenDayContext())
	short := e.Evaluate(SessionState{Direction: types.DirectionShort}, types.StyleDayTrading, goldenDayContext())
	assert.Equal(t, types.DirectionShort, short.Direction)
	assert.Less(t, short.Score, long.Score)
	assert.Equal(t, Context, short.Decision)
	assert.Equal(t, 40, short.Score)
}

func TestEngineSyntheticSentimentIsDownWeighted(t *testing.T) {
	primary := NewEngine().Evaluate(SessionState{}, types.StyleDayTrading, goldenDayContext())

	mc := goldenDayContext()
	mc.Sentiment = &market.Sentiment{Label: market.SentimentPositive, Score: 0.75, Source: market.ProvenanceSynthetic}
	synthetic := NewEngine().Evaluate(SessionState{}, types.StyleDayTrading, mc)

	assert.InDelta(t, 76.75, primary.RawScore, 1e-9)
	assert.InDelta(t, 75.25, synthetic.RawScore, 1e-9)
}

func TestEngineMissingSignalsAreNeutral(t *testing.T) {
	res := NewEngine().Evaluate(SessionState{}, types.StyleDayTrading, &MarketContext{Symbol: "BTCUSDT"})
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, Prepare, res.Decision)
	assert.False(t, res.HasEntryBand())

	res = NewEngine().Evaluate(SessionState{}, types.StyleDayTrading, nil)
	assert.Equal(t, Ignore, res.Decision)
}
