package app

import (
	"fmt"
	"time"

	brcfg "verge/internal/config"
	"verge/internal/analysis/regime"
	"verge/internal/decision"
	"verge/internal/gateway"
	"verge/internal/gateway/analytics"
	"verge/internal/gateway/coingecko"
	"verge/internal/gateway/news"
	"verge/internal/gateway/notifier"
	"verge/internal/hunt"
	"verge/internal/logger"
	"verge/internal/market"
	"verge/internal/monitor"
	"verge/internal/pkg/circuit"
	"verge/internal/scanner"
	"verge/internal/snapshot"
	"verge/internal/store/analysislog"
	"verge/internal/store/gormstore"
	livehttp "verge/internal/transport/http/live"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func provideSource(cfg *brcfg.Config) (market.Source, error) {
	src, err := gateway.NewSourceFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("market source: %s", cfg.Market.ResolveActiveSource().Name)
	return src, nil
}

func provideBreakers(cfg *brcfg.Config) *circuit.Registry {
	return circuit.NewRegistry(cfg.News.BreakerThreshold, seconds(cfg.News.BreakerCooldownSeconds))
}

func provideNews(cfg *brcfg.Config, src market.Source, breakers *circuit.Registry) *news.Service {
	timeout := millis(cfg.News.TimeoutMillis)
	return news.NewService(
		news.NewPrimary(cfg.News.PrimaryURL, timeout),
		news.NewSecondary(cfg.News.SecondaryURL, timeout),
		src,
		breakers,
		news.Options{
			CacheTTL: seconds(cfg.News.CacheTTLSeconds),
			Timeout:  timeout,
			Limit:    cfg.News.Limit,
		},
	)
}

// provideFundamentals returns nil when fundamentals are disabled; the
// assembler then leaves that signal empty.
func provideFundamentals(cfg *brcfg.Config) market.FundamentalsProvider {
	if !cfg.Fundamentals.Enabled {
		return nil
	}
	return coingecko.New(coingecko.Config{
		BaseURL:       cfg.Fundamentals.BaseURL,
		APIKey:        cfg.Fundamentals.APIKey,
		CacheTTL:      seconds(cfg.Fundamentals.CacheTTLSeconds),
		RatePerMinute: cfg.Fundamentals.RatePerMinute,
	})
}

func provideAnalytics(cfg *brcfg.Config) market.AnalyticsProvider {
	local := regime.NewLocal(regime.DefaultThresholds())
	if cfg.Analytics.RemoteURL == "" {
		return local
	}
	logger.Infof("analytics: remote %s with local fallback", cfg.Analytics.RemoteURL)
	return analytics.Fallback{
		Primary:   analytics.NewRemote(cfg.Analytics.RemoteURL, millis(cfg.Analytics.TimeoutMillis)),
		Secondary: local,
	}
}

func provideFearGreed(cfg *brcfg.Config) *market.FearGreedService {
	return market.NewFearGreedService(cfg.Market.FearGreedURL, seconds(cfg.Market.FearGreedTTLSeconds))
}

func provideAssembler(cfg *brcfg.Config, src market.Source, newsSvc *news.Service, fund market.FundamentalsProvider, an market.AnalyticsProvider) *snapshot.Assembler {
	return snapshot.NewAssembler(
		snapshot.NewCache(seconds(cfg.Snapshot.TTLSeconds)),
		snapshot.Providers{
			OpenInterest: src,
			Fundamentals: fund,
			News:         newsSvc,
			Analytics:    an,
		},
		millis(cfg.Snapshot.CallTimeoutMillis),
	)
}

func provideSessionStore(cfg *brcfg.Config) (*gormstore.GormStore, func(), error) {
	st, err := gormstore.NewGormStore(cfg.Store.SessionsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	return st, func() {
		if err := st.Close(); err != nil {
			logger.Warnf("close session store: %v", err)
		}
	}, nil
}

func provideLogStore(cfg *brcfg.Config) (*analysislog.Store, func(), error) {
	logs, err := analysislog.New(cfg.Store.LogsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open analysis log: %w", err)
	}
	return logs, func() {
		if err := logs.Close(); err != nil {
			logger.Warnf("close analysis log: %v", err)
		}
	}, nil
}

func provideHub(cfg *brcfg.Config) *notifier.Hub {
	if !cfg.Notify.Websocket.Enabled {
		return nil
	}
	return notifier.NewHub()
}

func provideSink(cfg *brcfg.Config, hub *notifier.Hub) notifier.Sink {
	var sinks notifier.Multi
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if tg := cfg.Notify.Telegram; tg.Enabled {
		sinks = append(sinks, notifier.NewTelegram(tg.BotToken, tg.ChatID))
	}
	if len(sinks) == 0 {
		return notifier.Nop{}
	}
	return sinks
}

func provideHunt(st *gormstore.GormStore, logs *analysislog.Store, sink notifier.Sink) *hunt.Service {
	return hunt.NewService(st, logs, sink)
}

func provideMonitor(cfg *brcfg.Config, st *gormstore.GormStore, logs *analysislog.Store, src market.Source,
	fg *market.FearGreedService, asm *snapshot.Assembler, sink notifier.Sink) *monitor.Monitor {
	return monitor.New(monitor.Config{
		Interval:      seconds(cfg.Monitor.IntervalSeconds),
		CandleLimit:   cfg.Monitor.CandleLimit,
		FetchParallel: cfg.Monitor.FetchParallel,
		RankingSize:   cfg.Monitor.RankingSize,
	}, monitor.Deps{
		Store:     st,
		Logs:      logs,
		Candles:   src,
		Prices:    src,
		Macro:     fg,
		Assembler: asm,
		Engine:    decision.NewEngine(),
		Notifier:  sink,
	})
}

// provideScanner returns nil when the scanner is disabled.
func provideScanner(cfg *brcfg.Config, src market.Source, newsSvc *news.Service, st *gormstore.GormStore,
	logs *analysislog.Store, huntSvc *hunt.Service) *scanner.Scanner {
	if !cfg.Scanner.Enabled {
		return nil
	}
	return scanner.New(scanner.Config{
		Interval:      seconds(cfg.Scanner.IntervalSeconds),
		TopN:          cfg.Scanner.TopN,
		Timeframe:     cfg.Scanner.Timeframe,
		CandleLimit:   cfg.Scanner.CandleLimit,
		ActivationBar: cfg.Scanner.ActivationBar,
	}, src, src, newsSvc, st.Strategies(), logs, huntSvc)
}

func provideHTTP(cfg *brcfg.Config, huntSvc *hunt.Service, hub *notifier.Hub, breakers *circuit.Registry) (*livehttp.Server, error) {
	sc := livehttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Hunt:     huntSvc,
		Breakers: breakers,
	}
	if hub != nil {
		sc.Events = hub.Handle
	}
	return livehttp.NewServer(sc)
}
