package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"verge/internal/logger"
	"verge/internal/market"
	symbolpkg "verge/internal/pkg/symbol"
	"verge/internal/scheduler"
)

const maxHistoryLimit = 1500

// Source implements market.Source on the USDT-M futures REST API.
type Source struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Source{cfg: final, client: client}, nil
}

// FetchHistory returns closed candles, oldest first. Chart-style intervals
// ("15", "240", "1D") are accepted.
func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	clean := symbolpkg.Normalize(symbol)
	if clean == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = symbolpkg.Interval(interval)
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := s.client.NewKlinesService().Symbol(clean).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", clean, interval, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	if dur, ok := scheduler.ParseIntervalDuration(interval); ok {
		out = scheduler.ClosedCandles(out, dur, time.Now())
	}
	return out, nil
}

// TopSymbols ranks USDT pairs by 24h quote volume. When the ranking is
// unavailable the configured fallback list is returned instead.
func (s *Source) TopSymbols(ctx context.Context, limit int) ([]string, error) {
	stats, err := s.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		logger.Warnf("binance top symbols failed, using fallback: %v", err)
		return s.fallback(limit), nil
	}
	type ranked struct {
		symbol string
		volume float64
	}
	items := make([]ranked, 0, len(stats))
	for _, st := range stats {
		if st == nil || !strings.HasSuffix(st.Symbol, "USDT") {
			continue
		}
		vol := parseFloat(st.QuoteVolume)
		if vol <= 0 {
			continue
		}
		items = append(items, ranked{symbol: st.Symbol, volume: vol})
	}
	if len(items) == 0 {
		return s.fallback(limit), nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].volume > items[j].volume })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.symbol
	}
	return out, nil
}

// LastPrice returns the latest traded price for symbol.
func (s *Source) LastPrice(ctx context.Context, symbol string) (float64, error) {
	clean := symbolpkg.Normalize(symbol)
	prices, err := s.client.NewListPricesService().Symbol(clean).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("last price %s: %w", clean, err)
	}
	for _, p := range prices {
		if p == nil || p.Symbol != clean {
			continue
		}
		if v := parseFloat(p.Price); v > 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("last price %s: empty response", clean)
}

func (s *Source) OpenInterest(ctx context.Context, symbol string) (*market.OpenInterest, error) {
	clean := symbolpkg.Normalize(symbol)
	res, err := s.client.NewGetOpenInterestService().Symbol(clean).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("open interest %s: %w", clean, err)
	}
	return &market.OpenInterest{
		Symbol:    clean,
		Contracts: parseFloat(res.OpenInterest),
		Timestamp: time.UnixMilli(res.Time).UTC(),
	}, nil
}

func (s *Source) fallback(limit int) []string {
	out := append([]string(nil), s.cfg.FallbackSymbols...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
