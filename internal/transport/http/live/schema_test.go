package livehttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verge/internal/types"
)

func TestDecodeStrategy(t *testing.T) {
	schema, err := compileSchema(strategySchema)
	require.NoError(t, err)

	in, err := decodeStrategy(schema, []byte(`{"style":"SwingTrading","direction":"Short","leverage":5,"take_profit_pct":"4.5","symbols":["ETHUSDT"]}`))
	require.NoError(t, err)
	assert.Equal(t, types.StyleSwingTrading, in.Style)
	assert.Equal(t, types.DirectionShort, in.Direction)
	assert.Equal(t, "4.5", in.TakeProfitPct.String())
	assert.Equal(t, []string{"ETHUSDT"}, in.Symbols)

	for name, body := range map[string]string{
		"not json":       `{`,
		"unknown field":  `{"style":"Scalping","owner":"x"}`,
		"leverage range": `{"leverage":500}`,
		"bad direction":  `{"direction":"Sideways"}`,
	} {
		_, err := decodeStrategy(schema, []byte(body))
		assert.Error(t, err, name)
	}
}
