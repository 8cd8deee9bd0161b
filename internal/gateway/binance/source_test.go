package binance

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
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	src, err := New(Config{RESTBaseURL: srv.URL})
	require.NoError(t, err)
	return src
}

func TestFetchHistoryParsesKlines(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "15m", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(`[[1499040000000,"100.5","101.0","99.5","100.8","12.5",1499040899999,"1260.0",42,"6.0","600.0","0"]]`))
	})

	candles, err := src.FetchHistory(context.Background(), "btc/usdt", "15", 50)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(1499040000000), candles[0].OpenTime)
	assert.Equal(t, 100.8, candles[0].Close)
	assert.Equal(t, int64(42), candles[0].Trades)
}

func TestTopSymbolsRanksUSDTByQuoteVolume(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/ticker/24hr", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"symbol":"ETHUSDT","quoteVolume":"500"},
			{"symbol":"BTCUSDT","quoteVolume":"900"},
			{"symbol":"ETHBTC","quoteVolume":"10000"},
			{"symbol":"DOGEUSDT","quoteVolume":"100"}
		]`))
	})

	got, err := src.TopSymbols(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got)
}

func TestTopSymbolsFallsBack(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	got, err := src.TopSymbols(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, got)
}

func TestOpenInterest(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/openInterest", r.URL.Path)
		_, _ = w.Write([]byte(`{"openInterest":"10659.509","symbol":"BTCUSDT","time":1589437530011}`))
	})
	oi, err := src.OpenInterest(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 10659.509, oi.Contracts, 1e-9)
}

func TestLastPriceReadsTicker(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/ticker/price", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","price":"3012.45","time":1589437530011}`))
	})
	price, err := src.LastPrice(context.Background(), "eth/usdt")
	require.NoError(t, err)
	assert.Equal(t, 3012.45, price)
}

func TestLastPriceFailsOnError(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := src.LastPrice(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}
