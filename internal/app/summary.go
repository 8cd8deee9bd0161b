package app

import (
	"fmt"
	"strings"

	brcfg "verge/internal/config"
	"verge/internal/logger"
	livehttp "verge/internal/transport/http/live"
)

type StartupSummary struct {
	Lines []string
}

func newStartupSummary(cfg *brcfg.Config, srv *livehttp.Server) *StartupSummary {
	s := &StartupSummary{}
	s.add("env: %s", cfg.App.Env)
	s.add("market source: %s", cfg.Market.ResolveActiveSource().Name)
	s.add("monitor: every %ds, %d candles, %d parallel fetches",
		cfg.Monitor.IntervalSeconds, cfg.Monitor.CandleLimit, cfg.Monitor.FetchParallel)
	if cfg.Scanner.Enabled {
		s.add("scanner: top %d on %s every %ds, activation at %d",
			cfg.Scanner.TopN, cfg.Scanner.Timeframe, cfg.Scanner.IntervalSeconds, cfg.Scanner.ActivationBar)
	} else {
		s.add("scanner: disabled")
	}
	s.add("fundamentals: %s", onOff(cfg.Fundamentals.Enabled))
	if cfg.Analytics.RemoteURL != "" {
		s.add("analytics: %s (local fallback)", cfg.Analytics.RemoteURL)
	} else {
		s.add("analytics: local")
	}
	s.add("notify: telegram %s, websocket %s", onOff(cfg.Notify.Telegram.Enabled), onOff(cfg.Notify.Websocket.Enabled))
	if srv != nil {
		s.add("http: %s", srv.Addr())
	}
	return s
}

func (s *StartupSummary) add(format string, args ...any) {
	s.Lines = append(s.Lines, fmt.Sprintf(format, args...))
}

func (s *StartupSummary) String() string {
	return strings.Join(s.Lines, "\n")
}

func (s *StartupSummary) Print() {
	for _, line := range s.Lines {
		logger.Infof("%s", line)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
