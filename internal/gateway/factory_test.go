package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brcfg "verge/internal/config"
	"verge/internal/gateway/binance"
	"verge/internal/gateway/gate"
)

func TestNewSourceFromConfig(t *testing.T) {
	cfg := &brcfg.Config{}
	src, err := NewSourceFromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &binance.Source{}, src)

	cfg.Market.Sources = []brcfg.MarketSource{{Name: "gate", Enabled: true}}
	src, err = NewSourceFromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gate.Source{}, src)

	cfg.Market.Sources = []brcfg.MarketSource{{Name: "kraken", Enabled: true}}
	_, err = NewSourceFromConfig(cfg)
	assert.Error(t, err)

	_, err = NewSourceFromConfig(nil)
	assert.Error(t, err)
}
