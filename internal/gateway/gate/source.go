package gate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/antihax/optional"
	gateapi "github.com/gateio/gateapi-go/v7"

	"verge/internal/logger"
	"verge/internal/market"
	symbolpkg "verge/internal/pkg/symbol"
	"verge/internal/scheduler"
)

const (
	gateSettle          = "usdt"
	gateMaxHistoryLimit = 2000
	defaultGateREST     = "https://api.gateio.ws/api/v4"
	oiStatsInterval     = "5m"
)

// intervalAliases covers the intervals Gate names differently.
var intervalAliases = map[string]string{"1w": "7d"}

// Source implements market.Source on the Gate USDT-settled futures API.
type Source struct {
	cfg  Config
	rest *gateapi.APIClient
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	restClient, err := newRESTClient(final)
	if err != nil {
		return nil, err
	}
	return &Source{cfg: final, rest: restClient}, nil
}

func newRESTClient(cfg Config) (*gateapi.APIClient, error) {
	conf := gateapi.NewConfiguration()
	conf.BasePath = cfg.RESTBaseURL

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.ProxyEnabled && cfg.RESTProxyURL != "" {
		proxyURL, err := url.Parse(cfg.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid gate REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	conf.HTTPClient = httpClient
	return gateapi.NewAPIClient(conf), nil
}

// Contract converts BTCUSDT to the BTC_USDT contract name.
func Contract(sym string) string {
	parsed := symbolpkg.Parse(sym)
	if parsed.Base == "" || parsed.Quote == "" {
		return ""
	}
	return parsed.Base + "_" + parsed.Quote
}

func gateInterval(interval string) string {
	iv := symbolpkg.Interval(interval)
	if alias, ok := intervalAliases[iv]; ok {
		return alias
	}
	return iv
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > gateMaxHistoryLimit {
		limit = gateMaxHistoryLimit
	}
	contract := Contract(symbol)
	if contract == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	norm := symbolpkg.Interval(interval)
	if norm == "" {
		return nil, fmt.Errorf("interval is required")
	}
	opts := &gateapi.ListFuturesCandlesticksOpts{
		Limit:    optional.NewInt32(int32(limit)),
		Interval: optional.NewString(gateInterval(norm)),
	}
	kls, _, err := s.rest.FuturesApi.ListFuturesCandlesticks(ctx, gateSettle, contract, opts)
	if err != nil {
		return nil, fmt.Errorf("gate candles %s %s: %w", contract, norm, err)
	}

	dur, hasDur := scheduler.ParseIntervalDuration(norm)
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		openTime := int64(kl.T * 1000)
		closeTime := openTime
		if hasDur {
			closeTime = openTime + dur.Milliseconds() - 1
		}
		out = append(out, market.Candle{
			OpenTime:  openTime,
			CloseTime: closeTime,
			Open:      parseFloat(kl.O),
			High:      parseFloat(kl.H),
			Low:       parseFloat(kl.L),
			Close:     parseFloat(kl.C),
			Volume:    parseFloat(kl.Sum),
		})
	}
	if hasDur {
		out = scheduler.ClosedCandles(out, dur, time.Now())
	}
	return out, nil
}

// LastPrice returns the last traded price of the contract.
func (s *Source) LastPrice(ctx context.Context, symbol string) (float64, error) {
	contract := Contract(symbol)
	if contract == "" {
		return 0, fmt.Errorf("gate last price: unsupported symbol %q", symbol)
	}
	tickers, _, err := s.rest.FuturesApi.ListFuturesTickers(ctx, gateSettle, &gateapi.ListFuturesTickersOpts{
		Contract: optional.NewString(contract),
	})
	if err != nil {
		return 0, fmt.Errorf("gate last price %s: %w", contract, err)
	}
	for _, t := range tickers {
		if t.Contract != contract {
			continue
		}
		if v := parseFloat(t.Last); v > 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("gate last price %s: empty response", contract)
}

// TopSymbols ranks USDT contracts by 24h quote volume, falling back to the
// configured list when the ranking is unavailable.
func (s *Source) TopSymbols(ctx context.Context, limit int) ([]string, error) {
	tickers, _, err := s.rest.FuturesApi.ListFuturesTickers(ctx, gateSettle, nil)
	if err != nil {
		logger.Warnf("gate top symbols failed, using fallback: %v", err)
		return s.fallback(limit), nil
	}
	type ranked struct {
		symbol string
		volume float64
	}
	items := make([]ranked, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Contract, "_USDT") {
			continue
		}
		vol := parseFloat(t.Volume24hQuote)
		if vol <= 0 {
			continue
		}
		items = append(items, ranked{symbol: symbolpkg.Normalize(t.Contract), volume: vol})
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

// OpenInterest reads the latest contract statistics bucket.
func (s *Source) OpenInterest(ctx context.Context, symbol string) (*market.OpenInterest, error) {
	contract := Contract(symbol)
	if contract == "" {
		return nil, fmt.Errorf("invalid symbol: %s", symbol)
	}
	opts := &gateapi.ListContractStatsOpts{
		Interval: optional.NewString(oiStatsInterval),
		Limit:    optional.NewInt32(1),
	}
	stats, _, err := s.rest.FuturesApi.ListContractStats(ctx, gateSettle, contract, opts)
	if err != nil {
		return nil, fmt.Errorf("gate open interest %s: %w", contract, err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("gate open interest %s: empty response", contract)
	}
	last := stats[len(stats)-1]
	return &market.OpenInterest{
		Symbol:    symbolpkg.Normalize(symbol),
		Contracts: float64(last.OpenInterest),
		Timestamp: time.Unix(last.Time, 0).UTC(),
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
