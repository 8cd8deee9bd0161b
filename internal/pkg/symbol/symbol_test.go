package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"btcusdt":       "BTCUSDT",
		"BTC/USDT":      "BTCUSDT",
		"eth-usdt":      "ETHUSDT",
		"SOL/USDT:USDT": "SOLUSDT",
		"auto":          "AUTO",
		"  ":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestNormalizeListDedupes(t *testing.T) {
	got := NormalizeList([]string{"BTCUSDT", "btc/usdt", "", "ETHUSDT"})
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got)
}

func TestTicker(t *testing.T) {
	assert.Equal(t, "BTC", Ticker("BTCUSDT"))
	assert.Equal(t, "ETH", Ticker("ETHUSD"))
	assert.Equal(t, "XYZ", Ticker("xyz"))
}

func TestInterval(t *testing.T) {
	assert.Equal(t, "15m", Interval("15"))
	assert.Equal(t, "4h", Interval("240"))
	assert.Equal(t, "1d", Interval("1D"))
	assert.Equal(t, "1h", Interval("1H"))
	assert.Equal(t, "1w", Interval("1W"))
}

func TestStepUp(t *testing.T) {
	assert.Equal(t, "30m", StepUp("15"))
	assert.Equal(t, "2h", StepUp("1h"))
	assert.Equal(t, "1w", StepUp("1w"))
}
