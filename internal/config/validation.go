package config

import (
	"fmt"
	"strings"

	"verge/internal/logger"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Scanner.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if c.Monitor.FetchParallel > 64 {
		return fmt.Errorf("monitor.fetch_parallel must be <= 64")
	}
	return nil
}

func (a *AppConfig) validate() error {
	if !logger.ValidLevel(a.LogLevel) {
		return fmt.Errorf("app.log_level %q is not one of debug, info, warn, error", a.LogLevel)
	}
	switch strings.ToLower(a.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	active := m.ResolveActiveSource()
	switch strings.ToLower(active.Name) {
	case "binance", "gate":
	default:
		return fmt.Errorf("market.active_source %q is not supported (binance, gate)", active.Name)
	}
	if active.Proxy.Enabled && strings.TrimSpace(active.Proxy.RESTURL) == "" {
		return fmt.Errorf("market.sources.%s.proxy.rest_url is required when the proxy is enabled", active.Name)
	}
	return nil
}

func (s *ScannerConfig) validate() error {
	if s.ActivationBar > 100 {
		return fmt.Errorf("scanner.activation_bar must be within 1..100")
	}
	if s.CandleLimit < 20 {
		return fmt.Errorf("scanner.candle_limit must be >= 20")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
