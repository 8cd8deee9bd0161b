package config

import (
	"fmt"
	"strings"
)

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogFormat     = "text"
	defaultAppHTTPAddr      = ":9991"
	defaultMarketName       = "binance"
	defaultMarketREST       = "https://fapi.binance.com"
	defaultGateREST         = "https://api.gateio.ws/api/v4"
	defaultFearGreedURL     = "https://api.alternative.me"
	defaultFearGreedTTL     = 3600
	defaultNewsPrimaryURL   = "https://cryptocurrency.cv"
	defaultNewsSecondaryURL = "https://min-api.cryptocompare.com"
	defaultNewsCacheTTL     = 900
	defaultNewsTimeoutMs    = 2500
	defaultNewsLimit        = 10
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = 600
	defaultCoinGeckoURL     = "https://api.coingecko.com"
	defaultCoinGeckoRate    = 30
	defaultCoinGeckoTTL     = 300
	defaultAnalyticsTimeout = 2500
	defaultSnapshotTTL      = 60
	defaultCallTimeoutMs    = 2500
	defaultMonitorInterval  = 30
	defaultMonitorCandles   = 100
	defaultMonitorParallel  = 8
	defaultMonitorRanking   = 3
	defaultScannerInterval  = 60
	defaultScannerTopN      = 30
	defaultScannerTimeframe = "15m"
	defaultScannerCandles   = 30
	defaultActivationBar    = 60
	defaultSessionsPath     = "data/verge.db"
	defaultLogsPath         = "data/analysis.db"
)

var defaultFallbackSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.News.applyDefaults(keys)
	c.Fundamentals.applyDefaults(keys)
	c.Analytics.applyDefaults(keys)
	c.Snapshot.applyDefaults(keys)
	c.Monitor.applyDefaults(keys)
	c.Scanner.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("market.fear_greed_url", &m.FearGreedURL, defaultFearGreedURL),
		intFieldDefault("market.fear_greed_ttl_seconds", &m.FearGreedTTLSeconds, defaultFearGreedTTL),
	)
	if len(m.FallbackSymbols) == 0 {
		m.FallbackSymbols = append([]string(nil), defaultFallbackSymbols...)
	}
	for i := range m.Sources {
		src := &m.Sources[i]
		src.Name = strings.ToLower(strings.TrimSpace(src.Name))
		if src.Name == "" {
			if i == 0 {
				src.Name = defaultMarketName
			} else {
				src.Name = fmt.Sprintf("market_%d", i)
			}
		}
		if src.RESTBaseURL == "" {
			src.RESTBaseURL = defaultRESTFor(src.Name)
		}
	}
	if strings.TrimSpace(m.ActiveSource) == "" {
		m.ActiveSource = firstEnabledMarket(m.Sources)
	}
}

func defaultRESTFor(name string) string {
	if name == "gate" {
		return defaultGateREST
	}
	return defaultMarketREST
}

func (n *NewsConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("news.primary_url", &n.PrimaryURL, defaultNewsPrimaryURL),
		stringFieldDefault("news.secondary_url", &n.SecondaryURL, defaultNewsSecondaryURL),
		intFieldDefault("news.cache_ttl_seconds", &n.CacheTTLSeconds, defaultNewsCacheTTL),
		intFieldDefault("news.timeout_ms", &n.TimeoutMillis, defaultNewsTimeoutMs),
		intFieldDefault("news.limit", &n.Limit, defaultNewsLimit),
		intFieldDefault("news.breaker_threshold", &n.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("news.breaker_cooldown_seconds", &n.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
}

func (f *FundamentalsConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("fundamentals.enabled", &f.Enabled, true),
		stringFieldDefault("fundamentals.base_url", &f.BaseURL, defaultCoinGeckoURL),
		intFieldDefault("fundamentals.rate_per_minute", &f.RatePerMinute, defaultCoinGeckoRate),
		intFieldDefault("fundamentals.cache_ttl_seconds", &f.CacheTTLSeconds, defaultCoinGeckoTTL),
	)
}

func (a *AnalyticsConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("analytics.timeout_ms", &a.TimeoutMillis, defaultAnalyticsTimeout),
	)
}

func (s *SnapshotConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("snapshot.ttl_seconds", &s.TTLSeconds, defaultSnapshotTTL),
		intFieldDefault("snapshot.call_timeout_ms", &s.CallTimeoutMillis, defaultCallTimeoutMs),
	)
}

func (m *MonitorConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("monitor.interval_seconds", &m.IntervalSeconds, defaultMonitorInterval),
		intFieldDefault("monitor.candle_limit", &m.CandleLimit, defaultMonitorCandles),
		intFieldDefault("monitor.fetch_parallel", &m.FetchParallel, defaultMonitorParallel),
		intFieldDefault("monitor.ranking_size", &m.RankingSize, defaultMonitorRanking),
	)
}

func (s *ScannerConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("scanner.enabled", &s.Enabled, true),
		intFieldDefault("scanner.interval_seconds", &s.IntervalSeconds, defaultScannerInterval),
		intFieldDefault("scanner.top_n", &s.TopN, defaultScannerTopN),
		stringFieldDefault("scanner.timeframe", &s.Timeframe, defaultScannerTimeframe),
		intFieldDefault("scanner.candle_limit", &s.CandleLimit, defaultScannerCandles),
		intFieldDefault("scanner.activation_bar", &s.ActivationBar, defaultActivationBar),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("store.sessions_path", &s.SessionsPath, defaultSessionsPath),
		stringFieldDefault("store.logs_path", &s.LogsPath, defaultLogsPath),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("notify.websocket.enabled", &n.Websocket.Enabled, true),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault applies only when the key is absent; false and true are
// both meaningful once set.
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}

func firstEnabledMarket(sources []MarketSource) string {
	for _, src := range sources {
		name := strings.TrimSpace(src.Name)
		if src.Enabled && name != "" {
			return name
		}
	}
	if len(sources) > 0 {
		if name := strings.TrimSpace(sources[0].Name); name != "" {
			return name
		}
	}
	return defaultMarketName
}
