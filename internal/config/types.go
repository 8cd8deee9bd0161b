package config

import "strings"

// Config is the root of verge.yaml.
type Config struct {
	App          AppConfig          `yaml:"app"`
	Market       MarketConfig       `yaml:"market"`
	News         NewsConfig         `yaml:"news"`
	Fundamentals FundamentalsConfig `yaml:"fundamentals"`
	Analytics    AnalyticsConfig    `yaml:"analytics"`
	Snapshot     SnapshotConfig     `yaml:"snapshot"`
	Monitor      MonitorConfig      `yaml:"monitor"`
	Scanner      ScannerConfig      `yaml:"scanner"`
	Store        StoreConfig        `yaml:"store"`
	Notify       NotifyConfig       `yaml:"notify"`
}

type AppConfig struct {
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogPath   string `yaml:"log_path"`
	HTTPAddr  string `yaml:"http_addr"`
}

type MarketConfig struct {
	ActiveSource        string         `yaml:"active_source"`
	Sources             []MarketSource `yaml:"sources"`
	FallbackSymbols     []string       `yaml:"fallback_symbols"`
	FearGreedURL        string         `yaml:"fear_greed_url"`
	FearGreedTTLSeconds int            `yaml:"fear_greed_ttl_seconds"`
}

type MarketSource struct {
	Name        string      `yaml:"name"`
	Enabled     bool        `yaml:"enabled"`
	RESTBaseURL string      `yaml:"rest_base_url"`
	Proxy       ProxyConfig `yaml:"proxy"`
}

type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	RESTURL string `yaml:"rest_url"`
}

// ResolveActiveSource returns the named source, the first enabled one, or
// a Binance default.
func (m MarketConfig) ResolveActiveSource() MarketSource {
	if len(m.Sources) == 0 {
		return MarketSource{
			Name:        defaultMarketName,
			Enabled:     true,
			RESTBaseURL: defaultMarketREST,
		}
	}
	active := strings.ToLower(strings.TrimSpace(m.ActiveSource))
	var fallback MarketSource
	for _, src := range m.Sources {
		if fallback.Name == "" && src.Enabled {
			fallback = src
		}
		if strings.ToLower(strings.TrimSpace(src.Name)) == active {
			return src
		}
	}
	if fallback.Name != "" {
		return fallback
	}
	return m.Sources[0]
}

type NewsConfig struct {
	PrimaryURL             string `yaml:"primary_url"`
	SecondaryURL           string `yaml:"secondary_url"`
	CacheTTLSeconds        int    `yaml:"cache_ttl_seconds"`
	TimeoutMillis          int    `yaml:"timeout_ms"`
	Limit                  int    `yaml:"limit"`
	BreakerThreshold       int    `yaml:"breaker_threshold"`
	BreakerCooldownSeconds int    `yaml:"breaker_cooldown_seconds"`
}

type FundamentalsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	RatePerMinute   int    `yaml:"rate_per_minute"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// AnalyticsConfig points at an optional remote regime/technicals service.
// Local indicators are used when RemoteURL is empty or the remote fails.
type AnalyticsConfig struct {
	RemoteURL     string `yaml:"remote_url"`
	TimeoutMillis int    `yaml:"timeout_ms"`
}

type SnapshotConfig struct {
	TTLSeconds        int `yaml:"ttl_seconds"`
	CallTimeoutMillis int `yaml:"call_timeout_ms"`
}

type MonitorConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	CandleLimit     int `yaml:"candle_limit"`
	FetchParallel   int `yaml:"fetch_parallel"`
	RankingSize     int `yaml:"ranking_size"`
}

type ScannerConfig struct {
	Enabled         bool   `yaml:"enabled"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	TopN            int    `yaml:"top_n"`
	Timeframe       string `yaml:"timeframe"`
	CandleLimit     int    `yaml:"candle_limit"`
	ActivationBar   int    `yaml:"activation_bar"`
}

type StoreConfig struct {
	SessionsPath string `yaml:"sessions_path"`
	LogsPath     string `yaml:"logs_path"`
}

type NotifyConfig struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Websocket WebsocketConfig `yaml:"websocket"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type WebsocketConfig struct {
	Enabled bool `yaml:"enabled"`
}

// keySet records which config keys were explicitly set so defaults never
// override an intentional zero.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
