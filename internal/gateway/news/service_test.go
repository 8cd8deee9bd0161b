package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verge/internal/market"
	"verge/internal/pkg/circuit"
)

type stubCandles struct {
	candles []market.Candle
	err     error
}

func (s stubCandles) FetchHistory(context.Context, string, string, int) ([]market.Candle, error) {
	return s.candles, s.err
}

type fakeProvider struct {
	primaryNews      http.HandlerFunc
	primarySentiment http.HandlerFunc
	backup           http.HandlerFunc
	primaryHits      atomic.Int32
	backupHits       atomic.Int32
}

func (f *fakeProvider) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/news", func(w http.ResponseWriter, r *http.Request) {
		f.primaryHits.Add(1)
		f.primaryNews(w, r)
	})
	mux.HandleFunc("/api/ai/sentiment", func(w http.ResponseWriter, r *http.Request) {
		f.primarySentiment(w, r)
	})
	mux.HandleFunc("/data/v2/news/", func(w http.ResponseWriter, r *http.Request) {
		f.backupHits.Add(1)
		f.backup(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(code) }
}

func body(payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}
}

const (
	primaryArticles = `{"articles":[{"title":"BTC rallies","source":"Desk","publishedAt":"2026-01-02T03:04:05Z","url":"https://x/1"}]}`
	backupArticles  = `{"Data":[{"title":"Bitcoin price surge continues","source":"cc","published_on":1767323045,"url":"https://y/1"},{"title":"Exchange hack rattles market","source":"cc","published_on":1767323000}]}`
)

func newTestService(t *testing.T, f *fakeProvider, candles market.CandleSource) *Service {
	srv := f.server(t)
	svc := NewService(
		NewPrimary(srv.URL, time.Second),
		NewSecondary(srv.URL, time.Second),
		candles,
		circuit.NewRegistry(3, 10*time.Minute),
		Options{},
	)
	return svc
}

func TestNewsUsesPrimaryWhenHealthy(t *testing.T) {
	f := &fakeProvider{
		primaryNews:      body(primaryArticles),
		primarySentiment: body(`{"label":"bullish","score":0.82}`),
		backup:           status(http.StatusInternalServerError),
	}
	svc := newTestService(t, f, nil)

	report := svc.News(context.Background(), "BTCUSDT")
	require.Len(t, report.Items, 1)
	assert.Equal(t, "BTC rallies", report.Items[0].Title)
	assert.Equal(t, market.SentimentPositive, report.Sentiment.Label)
	assert.InDelta(t, 0.82, report.Sentiment.Score, 1e-9)
	assert.Equal(t, market.ProvenancePrimary, report.Sentiment.Source)
	assert.Zero(t, f.backupHits.Load())
}

func TestNewsFallsBackToSecondary(t *testing.T) {
	f := &fakeProvider{
		primaryNews:      status(http.StatusBadGateway),
		primarySentiment: status(http.StatusBadGateway),
		backup:           body(backupArticles),
	}
	svc := newTestService(t, f, nil)

	report := svc.News(context.Background(), "BTC/USDT")
	require.Len(t, report.Items, 2)
	assert.Equal(t, market.ProvenanceSecondary, report.Sentiment.Source)
	assert.Equal(t, market.SentimentNeutral, report.Sentiment.Label)
	assert.Equal(t, 1, svc.Breakers().Get(BreakerPrimaryNews).Failures())
}

func TestNewsSyntheticFallbackFromCandles(t *testing.T) {
	f := &fakeProvider{
		primaryNews:      status(http.StatusInternalServerError),
		primarySentiment: status(http.StatusInternalServerError),
		backup:           status(http.StatusInternalServerError),
	}
	candles := stubCandles{candles: []market.Candle{{Close: 100}, {Close: 103}}}
	svc := newTestService(t, f, candles)

	report := svc.News(context.Background(), "ETHUSDT")
	require.Len(t, report.Items, 1)
	assert.Equal(t, syntheticItemSource, report.Items[0].Source)
	assert.Equal(t, market.SentimentPositive, report.Sentiment.Label)
	assert.InDelta(t, 0.75, report.Sentiment.Score, 1e-9)
	assert.Equal(t, market.ProvenanceSynthetic, report.Sentiment.Source)
}

func TestNewsSystemFallbackWithoutCandles(t *testing.T) {
	f := &fakeProvider{
		primaryNews:      status(http.StatusInternalServerError),
		primarySentiment: status(http.StatusInternalServerError),
		backup:           status(http.StatusInternalServerError),
	}
	svc := newTestService(t, f, stubCandles{err: errors.New("exchange down")})

	report := svc.News(context.Background(), "SOLUSDT")
	require.Len(t, report.Items, 1)
	assert.Equal(t, "No recent news or technical data available for SOL", report.Items[0].Title)
	assert.Equal(t, fallbackItemSource, report.Items[0].Source)
	assert.InDelta(t, 0.5, report.Sentiment.Score, 1e-9)

	// Not cached: the next call retries the providers.
	svc.News(context.Background(), "SOLUSDT")
	assert.Equal(t, int32(2), f.primaryHits.Load())
}

func TestPrimaryCircuitOpensAfterThreeFailures(t *testing.T) {
	f := &fakeProvider{
		primaryNews:      status(http.StatusInternalServerError),
		primarySentiment: status(http.StatusInternalServerError),
		backup:           body(backupArticles),
	}
	svc := newTestService(t, f, nil)
	svc.opts.CacheTTL = time.Nanosecond
	clock := time.Now()
	svc.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	for i := 0; i < 5; i++ {
		svc.News(context.Background(), "BTCUSDT")
	}
	assert.Equal(t, int32(3), f.primaryHits.Load())
	assert.Equal(t, circuit.StateOpen, svc.Breakers().Get(BreakerPrimaryNews).State())
	assert.Equal(t, int32(5), f.backupHits.Load())
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	f := &fakeProvider{
		primaryNews:      status(http.StatusNotFound),
		primarySentiment: status(http.StatusNotFound),
		backup:           body(backupArticles),
	}
	svc := newTestService(t, f, nil)
	svc.opts.CacheTTL = time.Nanosecond
	clock := time.Now()
	svc.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	for i := 0; i < 4; i++ {
		svc.News(context.Background(), "BTCUSDT")
	}
	assert.Equal(t, int32(4), f.primaryHits.Load())
	assert.Equal(t, circuit.StateClosed, svc.Breakers().Get(BreakerPrimaryNews).State())
}

func TestNewsIsCachedPerTicker(t *testing.T) {
	f := &fakeProvider{
		primaryNews:      body(primaryArticles),
		primarySentiment: status(http.StatusNotFound),
		backup:           status(http.StatusInternalServerError),
	}
	svc := newTestService(t, f, nil)

	first := svc.News(context.Background(), "BTCUSDT")
	second := svc.News(context.Background(), "BTC/USDT")
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.primaryHits.Load())
	// Sentiment endpoint had nothing; headlines are aggregated instead.
	assert.Equal(t, market.ProvenancePrimary, first.Sentiment.Source)
}

func TestAggregate(t *testing.T) {
	items := []market.NewsItem{
		{Sentiment: market.SentimentPositive},
		{Sentiment: market.SentimentPositive},
		{Sentiment: market.SentimentNegative},
		{Sentiment: market.SentimentNeutral},
	}
	got := Aggregate(items, market.ProvenanceSecondary)
	assert.Equal(t, market.SentimentPositive, got.Label)
	assert.InDelta(t, 0.5+0.5/3, got.Score, 1e-9)

	empty := Aggregate(nil, market.ProvenancePrimary)
	assert.Equal(t, market.SentimentNeutral, empty.Label)
	assert.InDelta(t, 0.5, empty.Score, 1e-9)
}

func TestLabelHeadline(t *testing.T) {
	assert.Equal(t, market.SentimentPositive, labelHeadline("ETF approval sparks rally"))
	assert.Equal(t, market.SentimentNegative, labelHeadline("Exchange hack triggers selloff"))
	assert.Equal(t, market.SentimentNeutral, labelHeadline("Weekly market wrap"))
}
