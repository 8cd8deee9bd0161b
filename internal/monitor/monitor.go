package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"verge/internal/decision"
	"verge/internal/gateway/notifier"
	"verge/internal/logger"
	"verge/internal/market"
	"verge/internal/scheduler"
	"verge/internal/session"
	"verge/internal/snapshot"
	"verge/internal/store"
)

const (
	DefaultInterval      = 30 * time.Second
	DefaultCandleLimit   = 100
	DefaultFetchParallel = 8
	DefaultRankingSize   = 3
	macroTimeout         = 3 * time.Second
	priceTimeout         = 3 * time.Second
)

type Config struct {
	Interval      time.Duration
	CandleLimit   int
	FetchParallel int
	RankingSize   int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = DefaultCandleLimit
	}
	if c.FetchParallel <= 0 {
		c.FetchParallel = DefaultFetchParallel
	}
	if c.RankingSize <= 0 {
		c.RankingSize = DefaultRankingSize
	}
	return c
}

type Deps struct {
	Store     store.Store
	Logs      store.LogRepository
	Candles   market.CandleSource
	Prices    market.PriceSource
	Macro     market.MacroProvider
	Assembler *snapshot.Assembler
	Engine    decision.Evaluator
	Notifier  notifier.Sink
}

// Monitor drives active sessions forward. Each cycle is a pipeline:
// collect the (symbol, timeframe) keys every session needs, fetch each key
// once, then evaluate sessions against the shared context map.
type Monitor struct {
	cfg       Config
	store     store.Store
	logs      store.LogRepository
	candles   market.CandleSource
	prices    market.PriceSource
	macro     market.MacroProvider
	assembler *snapshot.Assembler
	engine    decision.Evaluator
	auto      *decision.AutoEvaluator
	notify    notifier.Sink
	now       func() time.Time
}

func New(cfg Config, deps Deps) *Monitor {
	engine := deps.Engine
	if engine == nil {
		engine = decision.NewEngine()
	}
	sink := deps.Notifier
	if sink == nil {
		sink = notifier.Nop{}
	}
	return &Monitor{
		cfg:       cfg.withDefaults(),
		store:     deps.Store,
		logs:      deps.Logs,
		candles:   deps.Candles,
		prices:    deps.Prices,
		macro:     deps.Macro,
		assembler: deps.Assembler,
		engine:    engine,
		auto:      decision.NewAutoEvaluator(engine),
		notify:    sink,
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled. A cycle in progress finishes first.
func (m *Monitor) Run(ctx context.Context) error {
	return scheduler.NewLoop("monitor", m.cfg.Interval).Run(ctx, m.Cycle)
}

type job struct {
	sess  *session.Session
	strat *session.Strategy
}

// Cycle runs one monitor pass. Only failing to list sessions is an error;
// per-key and per-session failures are logged and skipped.
func (m *Monitor) Cycle(ctx context.Context) error {
	sessions, err := m.store.Sessions().ListMonitorable(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}
	jobs := m.attachStrategies(ctx, sessions)
	if len(jobs) == 0 {
		return nil
	}
	fg := m.fearGreed(ctx)
	keys := discover(jobs)
	contexts := m.fetch(ctx, keys, fg)
	logger.Debugf("monitor: %d session(s), %d key(s), %d context(s)", len(jobs), len(keys), len(contexts))

	for _, j := range jobs {
		if ctx.Err() != nil {
			return nil
		}
		m.safeEvaluate(ctx, j, contexts)
	}
	return nil
}

// attachStrategies pairs sessions with their owner's active strategy.
// Sessions whose owner has none are deactivated.
func (m *Monitor) attachStrategies(ctx context.Context, sessions []*session.Session) []job {
	byOwner := make(map[string]*session.Strategy)
	jobs := make([]job, 0, len(sessions))
	for _, sess := range sessions {
		strat, seen := byOwner[sess.OwnerID]
		if !seen {
			var err error
			strat, err = m.store.Strategies().ActiveByOwner(ctx, sess.OwnerID)
			switch {
			case errors.Is(err, session.ErrNotFound):
				strat = nil
			case err != nil:
				logger.Warnf("monitor: session %s: load strategy: %v", sess.ID, err)
				continue
			}
			byOwner[sess.OwnerID] = strat
		}
		if strat == nil {
			m.deactivateOrphan(ctx, sess)
			continue
		}
		jobs = append(jobs, job{sess: sess, strat: strat})
	}
	return jobs
}

func (m *Monitor) deactivateOrphan(ctx context.Context, sess *session.Session) {
	_, err := m.mutate(ctx, sess.ID, func(s *session.Session) bool {
		s.Deactivate(m.now())
		return true
	})
	if err != nil {
		if !errors.Is(err, errSkip) {
			logger.Warnf("monitor: deactivate session %s: %v", sess.ID, err)
		}
		return
	}
	logger.Warnf("monitor: session %s has no active strategy, deactivated", sess.ID)
}

func (m *Monitor) fearGreed(ctx context.Context) *market.FearGreed {
	if m.macro == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, macroTimeout)
	defer cancel()
	fg, err := m.macro.FearGreed(cctx)
	if err != nil {
		logger.Warnf("monitor: fear & greed unavailable: %v", err)
		return nil
	}
	return fg
}

// discover returns the deduplicated keys the jobs will read.
func discover(jobs []job) []decision.ContextKey {
	seen := make(map[decision.ContextKey]struct{})
	var out []decision.ContextKey
	for _, j := range jobs {
		for _, k := range requiredKeys(j) {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// fetch builds one context per key with bounded concurrency. Keys whose
// candles cannot be fetched are absent from the result.
func (m *Monitor) fetch(ctx context.Context, keys []decision.ContextKey, fg *market.FearGreed) decision.ContextMap {
	out := make(decision.ContextMap, len(keys))
	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(m.cfg.FetchParallel)
	for _, key := range keys {
		key := key
		group.Go(func() error {
			candles, err := m.candles.FetchHistory(gctx, key.Symbol, key.Timeframe, m.cfg.CandleLimit)
			if err != nil {
				logger.Warnf("monitor: candles %s %s: %v", key.Symbol, key.Timeframe, err)
				return nil
			}
			mc, err := m.assembler.Build(gctx, key.Symbol, key.Timeframe, candles, fg)
			if err != nil {
				logger.Warnf("monitor: context %s %s: %v", key.Symbol, key.Timeframe, err)
				return nil
			}
			if fg != nil {
				mc = mc.WithFearGreed(fg)
			}
			mu.Lock()
			out[key] = mc
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return out
}

func (m *Monitor) safeEvaluate(ctx context.Context, j job, contexts decision.ContextMap) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("monitor: session %s panic: %v", j.sess.ID, r)
		}
	}()
	if err := m.evaluate(ctx, j, contexts); err != nil && !errors.Is(err, errSkip) {
		logger.Errorf("monitor: session %s: %v", j.sess.ID, err)
	}
}

// Explore runs one detached search outside any session and returns the n
// best candidates. Nothing is persisted.
func (m *Monitor) Explore(ctx context.Context, req decision.SearchRequest, n int) ([]decision.Opportunity, error) {
	keys := req.RequiredKeys()
	contexts := m.fetch(ctx, keys, m.fearGreed(ctx))
	if len(contexts) == 0 {
		return nil, fmt.Errorf("no market context for %s", strings.Join(req.Symbols(), ","))
	}
	return m.auto.FindTopOpportunities(req, contexts, n), nil
}
