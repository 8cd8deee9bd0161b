package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verge/internal/market"
)

var candles = []market.Candle{
	{OpenTime: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	{OpenTime: 2, Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 12},
}

func TestRemoteDetectRegime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/detect-regime", r.URL.Path)
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "BTCUSDT", req.Symbol)
		assert.Equal(t, "1h", req.Timeframe)
		assert.Len(t, req.Data, 2)
		_, _ = w.Write([]byte(`{"regime":"BullTrend","volatility_score":0.4,"trend_strength":31.5}`))
	}))
	defer srv.Close()

	got, err := NewRemote(srv.URL, time.Second).DetectRegime(context.Background(), "BTCUSDT", "1h", candles)
	require.NoError(t, err)
	assert.Equal(t, market.RegimeBullTrend, got.Type)
	assert.InDelta(t, 31.5, got.TrendStrength, 1e-9)
}

func TestRemoteAnalyzeTechnicals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/analyze-technicals", r.URL.Path)
		_, _ = w.Write([]byte(`{"rsi":61.2,"macd_histogram":0.8,"adx":27,"bb_width":0.05}`))
	}))
	defer srv.Close()

	got, err := NewRemote(srv.URL, time.Second).AnalyzeTechnicals(context.Background(), "ETHUSDT", "4h", candles)
	require.NoError(t, err)
	assert.InDelta(t, 61.2, got.RSI, 1e-9)
	require.NotNil(t, got.ADX)
	assert.InDelta(t, 27, *got.ADX, 1e-9)
}

func TestRemoteTechnicalsWithoutADX(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rsi":48,"macd_histogram":0,"adx":null,"bb_width":0.02}`))
	}))
	defer srv.Close()

	got, err := NewRemote(srv.URL, time.Second).AnalyzeTechnicals(context.Background(), "ETHUSDT", "4h", candles)
	require.NoError(t, err)
	assert.Nil(t, got.ADX)
	_, ok := got.Trend()
	assert.False(t, ok)
}

type fixedProvider struct{ regime market.RegimeType }

func (f fixedProvider) DetectRegime(context.Context, string, string, []market.Candle) (*market.Regime, error) {
	return &market.Regime{Type: f.regime}, nil
}

func (f fixedProvider) AnalyzeTechnicals(context.Context, string, string, []market.Candle) (*market.Technicals, error) {
	return &market.Technicals{RSI: 50}, nil
}

func TestFallbackUsesSecondaryOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fb := Fallback{Primary: NewRemote(srv.URL, time.Second), Secondary: fixedProvider{regime: market.RegimeRanging}}
	got, err := fb.DetectRegime(context.Background(), "BTCUSDT", "1h", candles)
	require.NoError(t, err)
	assert.Equal(t, market.RegimeRanging, got.Type)

	tech, err := fb.AnalyzeTechnicals(context.Background(), "BTCUSDT", "1h", candles)
	require.NoError(t, err)
	assert.InDelta(t, 50, tech.RSI, 1e-9)
}

func TestRemoteRejectsUnknownRegime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"regime":"Sideways-ish"}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, time.Second).DetectRegime(context.Background(), "BTCUSDT", "1h", candles)
	require.Error(t, err)
}
