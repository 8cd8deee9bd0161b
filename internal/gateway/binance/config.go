package binance

import (
	"strings"
	"time"
)

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration

	ProxyEnabled bool
	RESTProxyURL string

	// FallbackSymbols is served when the ticker ranking cannot be fetched.
	FallbackSymbols []string
}

var defaultFallbackSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 10 * time.Second
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	if len(out.FallbackSymbols) == 0 {
		out.FallbackSymbols = defaultFallbackSymbols
	}
	return out
}
