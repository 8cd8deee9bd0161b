package gateway

import (
	"fmt"
	"strings"

	brcfg "verge/internal/config"
	"verge/internal/gateway/binance"
	"verge/internal/gateway/gate"
	"verge/internal/market"
)

// NewSourceFromConfig builds the exchange client named by market.active_source.
func NewSourceFromConfig(cfg *brcfg.Config) (market.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	active := cfg.Market.ResolveActiveSource()
	switch strings.ToLower(active.Name) {
	case "", "binance", "binance-futures":
		return binance.New(binance.Config{
			RESTBaseURL:     active.RESTBaseURL,
			ProxyEnabled:    active.Proxy.Enabled,
			RESTProxyURL:    active.Proxy.RESTURL,
			FallbackSymbols: cfg.Market.FallbackSymbols,
		})
	case "gate", "gateio":
		return gate.New(gate.Config{
			RESTBaseURL:     active.RESTBaseURL,
			ProxyEnabled:    active.Proxy.Enabled,
			RESTProxyURL:    active.Proxy.RESTURL,
			FallbackSymbols: cfg.Market.FallbackSymbols,
		})
	default:
		return nil, fmt.Errorf("unsupported market source: %s", active.Name)
	}
}
