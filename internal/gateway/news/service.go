package news

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"verge/internal/logger"
	"verge/internal/market"
	"verge/internal/pkg/circuit"
	"verge/internal/pkg/symbol"
)

const (
	BreakerPrimaryNews      = "PrimaryNews"
	BreakerPrimarySentiment = "PrimarySentiment"
	BreakerBackupNews       = "BackupNews"

	DefaultCacheTTL = 15 * time.Minute
	DefaultTimeout  = 2500 * time.Millisecond
	DefaultLimit    = 10

	syntheticItemSource = "Synthetic Tech Analysis"
	fallbackItemSource  = "System Fallback"
)

// Feed is one link of the headline chain.
type Feed interface {
	FetchNews(ctx context.Context, ticker string, limit int) ([]market.NewsItem, error)
}

// SentimentFeed scores an asset directly.
type SentimentFeed interface {
	FetchSentiment(ctx context.Context, ticker string) (*market.Sentiment, error)
}

// PrimaryFeed covers both halves of the primary provider.
type PrimaryFeed interface {
	Feed
	SentimentFeed
}

type Options struct {
	CacheTTL time.Duration
	Timeout  time.Duration
	Limit    int
}

type cached struct {
	report  market.NewsReport
	expires time.Time
}

// Service resolves news and sentiment through primary, backup and synthetic
// sources. News never fails; the weakest link always answers.
type Service struct {
	primary  PrimaryFeed
	backup   Feed
	candles  market.CandleSource
	breakers *circuit.Registry
	opts     Options
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

func NewService(primary PrimaryFeed, backup Feed, candles market.CandleSource, breakers *circuit.Registry, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if breakers == nil {
		breakers = circuit.NewRegistry(circuit.DefaultThreshold, circuit.DefaultCooldown)
	}
	return &Service{
		primary:  primary,
		backup:   backup,
		candles:  candles,
		breakers: breakers,
		opts:     opts,
		now:      time.Now,
		cache:    make(map[string]cached),
	}
}

func (s *Service) Breakers() *circuit.Registry { return s.breakers }

func (s *Service) News(ctx context.Context, sym string) market.NewsReport {
	ticker := symbol.Ticker(sym)
	if report, ok := s.lookup(ticker); ok {
		return report
	}
	report, cacheable := s.resolve(ctx, sym, ticker)
	if cacheable {
		s.store(ticker, report)
	}
	return report
}

func (s *Service) resolve(ctx context.Context, sym, ticker string) (market.NewsReport, bool) {
	if items, ok := s.fetch(ctx, BreakerPrimaryNews, s.primary, ticker); ok {
		return market.NewsReport{Items: items, Sentiment: s.primarySentiment(ctx, ticker, items)}, true
	}
	if items, ok := s.fetch(ctx, BreakerBackupNews, s.backup, ticker); ok {
		return market.NewsReport{Items: items, Sentiment: Aggregate(items, market.ProvenanceSecondary)}, true
	}
	logger.Warnf("news: all providers unavailable for %s, using synthetic fallback", ticker)
	return s.synthetic(ctx, sym, ticker)
}

// fetch returns ok only when the feed answered with at least one headline.
func (s *Service) fetch(ctx context.Context, name string, feed Feed, ticker string) ([]market.NewsItem, bool) {
	if feed == nil {
		return nil, false
	}
	if !s.breakers.Allow(name) {
		logger.Debugf("news: %s circuit open, skipping", name)
		return nil, false
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	items, err := feed.FetchNews(cctx, ticker, s.opts.Limit)
	s.record(name, err)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warnf("news: %s failed for %s: %v", name, ticker, err)
		}
		return nil, false
	}
	return items, len(items) > 0
}

func (s *Service) primarySentiment(ctx context.Context, ticker string, items []market.NewsItem) market.Sentiment {
	if s.breakers.Allow(BreakerPrimarySentiment) {
		cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		sent, err := s.primary.FetchSentiment(cctx, ticker)
		cancel()
		s.record(BreakerPrimarySentiment, err)
		if err == nil && sent != nil {
			return *sent
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			logger.Warnf("news: %s failed for %s: %v", BreakerPrimarySentiment, ticker, err)
		}
	}
	return Aggregate(items, market.ProvenancePrimary)
}

func (s *Service) record(name string, err error) {
	if err == nil || errors.Is(err, ErrNotFound) {
		s.breakers.RecordSuccess(name)
		return
	}
	s.breakers.RecordFailure(name)
}

// synthetic derives a low-trust reading from the last closed hourly move.
// The report is only cached when candles were available.
func (s *Service) synthetic(ctx context.Context, sym, ticker string) (market.NewsReport, bool) {
	var candles []market.Candle
	if s.candles != nil {
		cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		var err error
		candles, err = s.candles.FetchHistory(cctx, symbol.Normalize(sym), "1h", 3)
		cancel()
		if err != nil {
			logger.Warnf("news: synthetic candles for %s: %v", ticker, err)
		}
	}
	if len(candles) < 2 {
		return market.NewsReport{
			Items: []market.NewsItem{{
				Title:       fmt.Sprintf("No recent news or technical data available for %s", ticker),
				Source:      fallbackItemSource,
				PublishedAt: s.now().UTC(),
				Sentiment:   market.SentimentNeutral,
			}},
			Sentiment: market.Sentiment{Label: market.SentimentNeutral, Score: 0.5, Source: market.ProvenanceSynthetic},
		}, false
	}
	prev, last := candles[len(candles)-2], candles[len(candles)-1]
	change := 0.0
	if prev.Close > 0 {
		change = (last.Close - prev.Close) / prev.Close * 100
	}
	sent := market.Sentiment{Label: market.SentimentNeutral, Score: 0.5, Source: market.ProvenanceSynthetic}
	verb := "trading flat"
	switch {
	case change > 2:
		sent.Label, sent.Score, verb = market.SentimentPositive, 0.75, "up"
	case change < -2:
		sent.Label, sent.Score, verb = market.SentimentNegative, 0.25, "down"
	}
	return market.NewsReport{
		Items: []market.NewsItem{{
			Title:       fmt.Sprintf("%s %s %.2f%% over the last hour", ticker, verb, change),
			Source:      syntheticItemSource,
			PublishedAt: s.now().UTC(),
			Sentiment:   sent.Label,
		}},
		Sentiment: sent,
	}, true
}

func (s *Service) lookup(ticker string) (market.NewsReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cache[ticker]
	if !ok {
		return market.NewsReport{}, false
	}
	if !s.now().Before(c.expires) {
		delete(s.cache, ticker)
		return market.NewsReport{}, false
	}
	return c.report, true
}

func (s *Service) store(ticker string, report market.NewsReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[ticker] = cached{report: report, expires: s.now().Add(s.opts.CacheTTL)}
}
