package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, h http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	src, err := New(Config{RESTBaseURL: srv.URL})
	require.NoError(t, err)
	return src
}

func TestContract(t *testing.T) {
	assert.Equal(t, "BTC_USDT", Contract("BTCUSDT"))
	assert.Equal(t, "ETH_USDT", Contract("eth/usdt"))
	assert.Empty(t, Contract("AUTO"))
	assert.Equal(t, "7d", gateInterval("1W"))
	assert.Equal(t, "15m", gateInterval("15"))
}

func TestFetchHistoryParsesCandles(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/futures/usdt/candlesticks", r.URL.Path)
		assert.Equal(t, "BTC_USDT", r.URL.Query().Get("contract"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(`[{"t":1539852480,"v":97151,"c":"101.5","h":"102","l":"99","o":"100","sum":"3580"}]`))
	})

	candles, err := src.FetchHistory(context.Background(), "BTCUSDT", "60", 10)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(1539852480000), candles[0].OpenTime)
	assert.Equal(t, 101.5, candles[0].Close)
	assert.Equal(t, 3580.0, candles[0].Volume)
}

func TestTopSymbolsRanksUSDTContracts(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/futures/usdt/tickers", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"contract":"ETH_USDT","volume_24h_quote":"500"},
			{"contract":"BTC_USDT","volume_24h_quote":"900"},
			{"contract":"DOGE_USDT","volume_24h_quote":"0"}
		]`))
	})
	got, err := src.TopSymbols(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got)
}

func TestTopSymbolsFallsBack(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	got, err := src.TopSymbols(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got)
}

func TestOpenInterestUsesLatestBucket(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/futures/usdt/contract_stats", r.URL.Path)
		_, _ = w.Write([]byte(`[{"time":1603865400,"open_interest":7000,"open_interest_usd":91000}]`))
	})
	oi, err := src.OpenInterest(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", oi.Symbol)
	assert.Equal(t, 7000.0, oi.Contracts)
	assert.Equal(t, int64(1603865400), oi.Timestamp.Unix())
}

func TestLastPriceReadsContractTicker(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/futures/usdt/tickers", r.URL.Path)
		assert.Equal(t, "SOL_USDT", r.URL.Query().Get("contract"))
		_, _ = w.Write([]byte(`[{"contract":"SOL_USDT","last":"142.7"}]`))
	})
	price, err := src.LastPrice(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, 142.7, price)

	_, err = src.LastPrice(context.Background(), "AUTO")
	assert.Error(t, err)
}
