package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verge/internal/types"
)

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(state SessionState, style types.Style, mc *MarketContext) Result {
	args := m.Called(state, style, mc)
	return args.Get(0).(Result)
}

func forSymbol(sym string) interface{} {
	return mock.MatchedBy(func(s SessionState) bool { return s.Symbol == sym })
}

func contextsFor(tf string, symbols ...string) ContextMap {
	out := ContextMap{}
	for _, s := range symbols {
		out[ContextKey{Symbol: s, Timeframe: tf}] = &MarketContext{Symbol: s, Timeframe: tf}
	}
	return out
}

func TestFindBestOpportunityEarlyExit(t *testing.T) {
	ev := new(MockEvaluator)
	ev.On("Evaluate", forSymbol("AAAUSDT"), types.StyleScalping, mock.Anything).Return(Result{Decision: Context, Score: 40})
	ev.On("Evaluate", forSymbol("BBBUSDT"), types.StyleScalping, mock.Anything).Return(Result{Decision: Entry, Score: 80})
	ev.On("Evaluate", forSymbol("CCCUSDT"), types.StyleScalping, mock.Anything).Return(Result{Decision: Entry, Score: 90})

	auto := NewAutoEvaluator(ev)
	req := SearchRequest{
		Symbol:    "AUTO",
		Timeframe: "15",
		Universe:  []string{"AAAUSDT", "BBBUSDT", "CCCUSDT"},
		Style:     types.StyleScalping,
		Direction: types.DirectionLong,
	}
	best := auto.FindBestOpportunity(req, contextsFor("15m", "AAAUSDT", "BBBUSDT", "CCCUSDT"))

	require.NotNil(t, best)
	assert.Equal(t, "BBBUSDT", best.Symbol)
	assert.Equal(t, 80, best.Result.Score)
	ev.AssertNumberOfCalls(t, "Evaluate", 2)
	ev.AssertNotCalled(t, "Evaluate", forSymbol("CCCUSDT"), types.StyleScalping, mock.Anything)
}

func TestFindBestOpportunityKeepsHighestWithoutEarlyExit(t *testing.T) {
	ev := new(MockEvaluator)
	ev.On("Evaluate", forSymbol("AAAUSDT"), mock.Anything, mock.Anything).Return(Result{Decision: Prepare, Score: 60})
	ev.On("Evaluate", forSymbol("BBBUSDT"), mock.Anything, mock.Anything).Return(Result{Decision: Entry, Score: 72})

	req := SearchRequest{Symbol: "AUTO", Timeframe: "15m", Universe: []string{"AAAUSDT", "BBBUSDT"}, Style: types.StyleDayTrading, Direction: types.DirectionAuto}
	best := NewAutoEvaluator(ev).FindBestOpportunity(req, contextsFor("15m", "AAAUSDT", "BBBUSDT"))

	require.NotNil(t, best)
	assert.Equal(t, "BBBUSDT", best.Symbol)
	ev.AssertNumberOfCalls(t, "Evaluate", 4)
}

func TestFindBestOpportunitySkipsMissingContexts(t *testing.T) {
	ev := new(MockEvaluator)
	ev.On("Evaluate", forSymbol("BBBUSDT"), mock.Anything, mock.Anything).Return(Result{Decision: Context, Score: 35})

	req := SearchRequest{Symbol: "AUTO", Timeframe: "15m", Universe: []string{"AAAUSDT", "BBBUSDT"}, Style: types.StyleHODL, Direction: types.DirectionLong}
	best := NewAutoEvaluator(ev).FindBestOpportunity(req, contextsFor("15m", "BBBUSDT"))
	require.NotNil(t, best)
	assert.Equal(t, "BBBUSDT", best.Symbol)

	assert.Nil(t, NewAutoEvaluator(ev).FindBestOpportunity(req, ContextMap{}))
}

func TestSearchRequestDefaults(t *testing.T) {
	req := SearchRequest{Symbol: "AUTO", Style: types.StyleAuto, Direction: types.DirectionAuto}
	assert.Equal(t, []string{"BTCUSDT"}, req.Symbols())
	assert.Len(t, req.Styles(), 6)
	assert.Equal(t, []types.Direction{types.DirectionLong, types.DirectionShort}, req.Directions())

	fixed := SearchRequest{Symbol: "ethusdt", Universe: []string{"BTCUSDT"}, Style: types.StyleGridTrading, Direction: types.DirectionShort}
	assert.Equal(t, []string{"ETHUSDT"}, fixed.Symbols())
	assert.Equal(t, []types.Style{types.StyleGridTrading}, fixed.Styles())
}

func TestRequiredKeysIncludeConfirmationTimeframes(t *testing.T) {
	req := SearchRequest{Symbol: "AUTO", Timeframe: "15", Universe: []string{"BTCUSDT", "ETHUSDT"}, Style: types.StyleAuto}
	keys := req.RequiredKeys()
	assert.Len(t, keys, 10)
	assert.Contains(t, keys, ContextKey{Symbol: "ETHUSDT", Timeframe: "4h"})
	assert.Contains(t, keys, ContextKey{Symbol: "BTCUSDT", Timeframe: "30m"})
	assert.Equal(t, ContextKey{Symbol: "BTCUSDT", Timeframe: "15m"}, keys[0])
}

func TestSearchAttachesHigherTimeframeAndSelectedState(t *testing.T) {
	ev := new(MockEvaluator)
	ev.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Return(Result{Decision: Context, Score: 40})

	ctxs := contextsFor("15m", "BTCUSDT")
	htf := &MarketContext{Symbol: "BTCUSDT", Timeframe: "4h"}
	ctxs[ContextKey{Symbol: "BTCUSDT", Timeframe: "4h"}] = htf

	req := SearchRequest{
		SessionID:         "s1",
		Stage:             types.StagePrepared,
		Symbol:            "AUTO",
		Timeframe:         "15m",
		Style:             types.StyleDayTrading,
		Direction:         types.DirectionAuto,
		Confirmations:     1,
		SelectedSymbol:    "BTCUSDT",
		SelectedStyle:     types.StyleDayTrading,
		SelectedDirection: types.DirectionShort,
	}
	NewAutoEvaluator(ev).FindBestOpportunity(req, ctxs)

	require.Len(t, ev.Calls, 2)
	long := ev.Calls[0].Arguments.Get(0).(SessionState)
	short := ev.Calls[1].Arguments.Get(0).(SessionState)
	assert.Equal(t, types.StageEvaluating, long.Stage)
	assert.Equal(t, 0, long.Confirmations)
	assert.Equal(t, types.StagePrepared, short.Stage)
	assert.Equal(t, 1, short.Confirmations)

	mc := ev.Calls[0].Arguments.Get(2).(*MarketContext)
	assert.Same(t, htf, mc.HigherTimeframe)
	assert.Nil(t, ctxs.Get("BTCUSDT", "15m").HigherTimeframe, "shared context is not mutated")
}

func TestFindTopOpportunities(t *testing.T) {
	ev := new(MockEvaluator)
	ev.On("Evaluate", forSymbol("AAAUSDT"), mock.Anything, mock.Anything).Return(Result{Score: 10})
	ev.On("Evaluate", forSymbol("BBBUSDT"), mock.Anything, mock.Anything).Return(Result{Score: 30})
	ev.On("Evaluate", forSymbol("CCCUSDT"), mock.Anything, mock.Anything).Return(Result{Score: 20})

	req := SearchRequest{Symbol: "AUTO", Timeframe: "15m", Universe: []string{"AAAUSDT", "BBBUSDT", "CCCUSDT"}, Style: types.StyleHODL, Direction: types.DirectionLong}
	top := NewAutoEvaluator(ev).FindTopOpportunities(req, contextsFor("15m", "AAAUSDT", "BBBUSDT", "CCCUSDT"), 2)
	require.Len(t, top, 2)
	assert.Equal(t, "BBBUSDT", top[0].Symbol)
	assert.Equal(t, "CCCUSDT", top[1].Symbol)
}
