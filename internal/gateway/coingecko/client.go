package coingecko

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"verge/internal/market"
	"verge/internal/pkg/symbol"
)

const (
	DefaultBaseURL  = "https://api.coingecko.com"
	DefaultCacheTTL = 5 * time.Minute
	// Public tier allows roughly 30 calls per minute.
	DefaultRatePerMinute = 30
)

var coinIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"BNB": "binancecoin",
	"SOL": "solana",
	"XRP": "ripple",
	"ADA": "cardano",
}

// CoinID maps a ticker to its CoinGecko id; ok is false for unmapped assets.
func CoinID(sym string) (string, bool) {
	id, ok := coinIDs[symbol.Ticker(sym)]
	return id, ok
}

type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	CacheTTL      time.Duration
	RatePerMinute int
}

type entry struct {
	data    market.Fundamentals
	expires time.Time
}

// Client implements market.FundamentalsProvider against /simple/price.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = DefaultRatePerMinute
	}
	hc := resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		hc.SetHeader("x-cg-demo-api-key", cfg.APIKey)
	}
	return &Client{
		http:    hc,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1),
		ttl:     cfg.CacheTTL,
		now:     time.Now,
		cache:   make(map[string]entry),
	}
}

// Fundamentals returns nil without error for assets CoinGecko is not mapped for.
func (c *Client) Fundamentals(ctx context.Context, sym string) (*market.Fundamentals, error) {
	id, ok := CoinID(sym)
	if !ok {
		return nil, nil
	}
	if f, ok := c.lookup(id); ok {
		return &f, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":                id,
			"vs_currencies":      "usd",
			"include_market_cap": "true",
			"include_24hr_vol":   "true",
		}).
		Get("/api/v3/simple/price")
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("coingecko: unexpected status %d", resp.StatusCode())
	}
	node := gjson.GetBytes(resp.Body(), id)
	if !node.Exists() {
		return nil, nil
	}
	f := market.Fundamentals{
		PriceUSD:  node.Get("usd").Float(),
		MarketCap: node.Get("usd_market_cap").Float(),
		Volume24h: node.Get("usd_24h_vol").Float(),
	}
	c.store(id, f)
	return &f, nil
}

func (c *Client) lookup(id string) (market.Fundamentals, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[id]
	if !ok || !c.now().Before(e.expires) {
		return market.Fundamentals{}, false
	}
	return e.data, true
}

func (c *Client) store(id string, f market.Fundamentals) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[id] = entry{data: f, expires: c.now().Add(c.ttl)}
}
