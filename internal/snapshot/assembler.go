package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"verge/internal/decision"
	"verge/internal/logger"
	"verge/internal/market"
)

const DefaultCallTimeout = 2500 * time.Millisecond

// Providers bundles the sub-signal sources. Any of them may be nil; the
// matching field of the context then stays empty.
type Providers struct {
	OpenInterest market.OpenInterestSource
	Fundamentals market.FundamentalsProvider
	News         market.NewsProvider
	Analytics    market.AnalyticsProvider
}

type Assembler struct {
	cache       *Cache
	providers   Providers
	callTimeout time.Duration
}

func NewAssembler(cache *Cache, providers Providers, callTimeout time.Duration) *Assembler {
	if cache == nil {
		cache = NewCache(DefaultTTL)
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Assembler{cache: cache, providers: providers, callTimeout: callTimeout}
}

// Build returns the context of the latest candle, from cache when possible.
// Sub-signal failures are logged and leave that signal empty.
func (a *Assembler) Build(ctx context.Context, symbol, timeframe string, candles []market.Candle, fg *market.FearGreed) (*decision.MarketContext, error) {
	last, ok := market.Last(candles)
	if !ok {
		return nil, fmt.Errorf("%s %s: no candles", symbol, timeframe)
	}
	if cached, ok := a.cache.Get(symbol, timeframe, last.OpenTime); ok {
		return cached, nil
	}

	mc := &decision.MarketContext{
		Symbol:    symbol,
		Timeframe: timeframe,
		AsOf:      last.OpenTime,
		FearGreed: fg,
		Candles:   candles,
	}
	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
			defer cancel()
			if err := fn(callCtx); err != nil {
				logger.Debugf("snapshot %s %s: %s unavailable: %v", symbol, timeframe, name, err)
			}
		}()
	}

	p := a.providers
	if p.OpenInterest != nil {
		run("open interest", func(c context.Context) (err error) {
			mc.OpenInterest, err = p.OpenInterest.OpenInterest(c, symbol)
			return err
		})
	}
	if p.Fundamentals != nil {
		run("fundamentals", func(c context.Context) (err error) {
			mc.Fundamentals, err = p.Fundamentals.Fundamentals(c, symbol)
			return err
		})
	}
	if p.News != nil {
		run("news", func(c context.Context) error {
			report := p.News.News(c, symbol)
			mc.News = report.Items
			s := report.Sentiment
			mc.Sentiment = &s
			return nil
		})
	}
	if p.Analytics != nil {
		run("regime", func(c context.Context) (err error) {
			mc.Regime, err = p.Analytics.DetectRegime(c, symbol, timeframe, candles)
			return err
		})
		run("technicals", func(c context.Context) (err error) {
			mc.Technicals, err = p.Analytics.AnalyzeTechnicals(c, symbol, timeframe, candles)
			return err
		})
	}
	wg.Wait()

	a.cache.Set(symbol, timeframe, last.OpenTime, mc, 0)
	return mc, nil
}
