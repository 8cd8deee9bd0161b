package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageNextIsCapped(t *testing.T) {
	assert.Equal(t, StagePrepared, StageEvaluating.Next())
	assert.Equal(t, StageSellActive, StageBuyActive.Next())
	assert.Equal(t, StageSellActive, StageSellActive.Next())
	assert.True(t, StageSellActive.Terminal())
	assert.False(t, StageBuyActive.Terminal())
}

func TestStageJSON(t *testing.T) {
	raw, err := json.Marshal(map[string]Stage{"stage": StageBuyActive})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"BuyActive"}`, string(raw))

	var out struct{ Stage Stage }
	require.NoError(t, json.Unmarshal([]byte(`{"Stage":"prepared"}`), &out))
	assert.Equal(t, StagePrepared, out.Stage)
}

func TestParseStyleAndDirection(t *testing.T) {
	assert.Equal(t, StyleDayTrading, ParseStyle("day_trading"))
	assert.Equal(t, StyleAuto, ParseStyle(""))
	assert.Equal(t, Style("Arbitrage"), ParseStyle("Arbitrage"))
	assert.Equal(t, DirectionShort, ParseDirection("SHORT"))
	assert.Equal(t, DirectionAuto, ParseDirection("whatever"))
	assert.Equal(t, -1.0, DirectionShort.Sign())
}
