package scanner

import (
	"context"
	"fmt"
	"math"
	"time"

	"verge/internal/analysis/indicator"
	"verge/internal/logger"
	"verge/internal/market"
	"verge/internal/scheduler"
	"verge/internal/session"
	"verge/internal/store"
	"verge/internal/types"
)

const (
	DefaultInterval      = time.Minute
	DefaultTopN          = 30
	DefaultTimeframe     = "15m"
	DefaultCandleLimit   = 30
	DefaultActivationBar = 60
	minCandles           = 20
	sentimentBonus       = 20
	successConfidence    = 70
)

var FallbackSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

type Config struct {
	Interval      time.Duration
	TopN          int
	Timeframe     string
	CandleLimit   int
	ActivationBar int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.Timeframe == "" {
		c.Timeframe = DefaultTimeframe
	}
	if c.CandleLimit < minCandles {
		c.CandleLimit = DefaultCandleLimit
	}
	if c.ActivationBar <= 0 {
		c.ActivationBar = DefaultActivationBar
	}
	return c
}

// SessionStarter opens a session for an owner unless one is already active.
type SessionStarter interface {
	StartIfIdle(ctx context.Context, ownerID, sym, timeframe string) (*session.Session, bool, error)
}

// Signal is one symbol's scan outcome.
type Signal struct {
	Symbol     string          `json:"symbol"`
	RSI        float64         `json:"rsi"`
	Trend      string          `json:"trend"`
	Sentiment  string          `json:"sentiment"`
	Confidence int             `json:"confidence"`
	Direction  types.Direction `json:"signal"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Scanner sweeps the most liquid pairs with a coarse RSI/trend filter and
// opens sessions for auto-mode strategies when a symbol looks promising.
// It is independent of the monitor and of existing sessions.
type Scanner struct {
	cfg        Config
	symbols    market.SymbolSource
	candles    market.CandleSource
	news       market.NewsProvider
	strategies store.StrategyRepository
	logs       store.LogRepository
	starter    SessionStarter
	now        func() time.Time
}

func New(cfg Config, symbols market.SymbolSource, candles market.CandleSource, news market.NewsProvider,
	strategies store.StrategyRepository, logs store.LogRepository, starter SessionStarter) *Scanner {
	return &Scanner{
		cfg:        cfg.withDefaults(),
		symbols:    symbols,
		candles:    candles,
		news:       news,
		strategies: strategies,
		logs:       logs,
		starter:    starter,
		now:        time.Now,
	}
}

func (s *Scanner) Run(ctx context.Context) error {
	return scheduler.NewLoop("scanner", s.cfg.Interval).Run(ctx, s.Scan)
}

// Scan runs one sweep. A symbol that fails is logged and skipped.
func (s *Scanner) Scan(ctx context.Context) error {
	_, err := s.scan(ctx)
	return err
}

func (s *Scanner) scan(ctx context.Context) ([]Signal, error) {
	universe := s.universe(ctx)
	logger.Infof("scanner: analyzing %d symbol(s)", len(universe))
	var out []Signal
	for _, sym := range universe {
		if ctx.Err() != nil {
			break
		}
		sig, err := s.analyze(ctx, sym)
		if err != nil {
			logger.Warnf("scanner: %s: %v", sym, err)
			continue
		}
		out = append(out, sig)
		s.record(ctx, sig)
		if sig.Confidence >= s.cfg.ActivationBar {
			s.activate(ctx, sig)
		}
	}
	logger.Infof("scanner: cycle done, %d symbol(s) analyzed", len(out))
	return out, nil
}

func (s *Scanner) universe(ctx context.Context) []string {
	if s.symbols == nil {
		return FallbackSymbols
	}
	syms, err := s.symbols.TopSymbols(ctx, s.cfg.TopN)
	if err != nil || len(syms) == 0 {
		if err != nil {
			logger.Warnf("scanner: top symbols unavailable, using fallback: %v", err)
		}
		return FallbackSymbols
	}
	return syms
}

func (s *Scanner) analyze(ctx context.Context, sym string) (Signal, error) {
	candles, err := s.candles.FetchHistory(ctx, sym, s.cfg.Timeframe, s.cfg.CandleLimit)
	if err != nil {
		return Signal{}, err
	}
	if len(candles) < minCandles {
		return Signal{}, fmt.Errorf("not enough candles: %d", len(candles))
	}
	closes := market.Closes(candles)
	sig := Signal{
		Symbol:    sym,
		RSI:       indicator.RSI(closes, indicator.DefaultRSIPeriod),
		Trend:     trendLabel(closes),
		Sentiment: "unknown",
		Timestamp: s.now().UTC(),
	}
	bonus := 0
	if s.news != nil {
		report := s.news.News(ctx, sym)
		if label := report.Sentiment.Label; label != "" {
			sig.Sentiment = string(label)
			switch label {
			case market.SentimentPositive:
				bonus = sentimentBonus
			case market.SentimentNegative:
				bonus = -sentimentBonus
			}
		}
	}
	sig.Confidence, sig.Direction = confidence(sig.RSI, sig.Trend, bonus)
	return sig, nil
}

// trendLabel compares the averages of the older and newer halves.
func trendLabel(closes []float64) string {
	half := len(closes) / 2
	if half == 0 {
		return "bearish"
	}
	if mean(closes[half:]) > mean(closes[:half]) {
		return "bullish"
	}
	return "bearish"
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// confidence is a coarse pre-filter score: oversold pairs lean long,
// overbought pairs lean short, sentiment agreeing with the lean adds to it.
func confidence(rsi float64, trend string, bonus int) (int, types.Direction) {
	var conf int
	dir := types.DirectionAuto
	switch {
	case rsi < 35:
		conf = int(35-rsi)*2 + 50 + bonus
		dir = types.DirectionLong
	case rsi > 65:
		conf = int(rsi-65)*2 + 50 - bonus
		dir = types.DirectionShort
	default:
		conf = 30
		if trend == "bullish" {
			conf += 10
		}
	}
	return int(math.Max(0, math.Min(100, float64(conf)))), dir
}

func (s *Scanner) record(ctx context.Context, sig Signal) {
	if s.logs == nil {
		return
	}
	level := session.LevelInfo
	if sig.Confidence > successConfidence {
		level = session.LevelSuccess
	}
	rec := session.AnalysisLog{
		Symbol:    sig.Symbol,
		Type:      session.LogScanner,
		Message:   fmt.Sprintf("Scanner: %s | RSI: %.2f | Conf: %d%% | Sentiment: %s", sig.Symbol, sig.RSI, sig.Confidence, sig.Sentiment),
		Level:     level,
		Timestamp: sig.Timestamp,
	}.WithPayload(sig)
	if _, err := s.logs.Append(ctx, rec); err != nil {
		logger.Warnf("scanner: append log for %s: %v", sig.Symbol, err)
	}
}

// activate opens a session on sig.Symbol for every auto-mode strategy whose
// owner is idle.
func (s *Scanner) activate(ctx context.Context, sig Signal) {
	logger.Infof("scanner: opportunity %s at %d%% confidence", sig.Symbol, sig.Confidence)
	if s.logs != nil {
		rec := session.AnalysisLog{
			Symbol:    sig.Symbol,
			Type:      session.LogScanner,
			Message:   fmt.Sprintf("Opportunity detected: %s with %d%% confidence", sig.Symbol, sig.Confidence),
			Level:     session.LevelSuccess,
			Timestamp: sig.Timestamp,
		}.WithPayload(map[string]any{
			"symbol":         sig.Symbol,
			"confidence":     sig.Confidence,
			"signal":         sig.Direction,
			"is_opportunity": true,
		})
		if _, err := s.logs.Append(ctx, rec); err != nil {
			logger.Warnf("scanner: append opportunity for %s: %v", sig.Symbol, err)
		}
	}
	if s.strategies == nil || s.starter == nil {
		return
	}
	strats, err := s.strategies.ListAutoMode(ctx)
	if err != nil {
		logger.Warnf("scanner: list auto-mode strategies: %v", err)
		return
	}
	for _, st := range strats {
		sess, started, err := s.starter.StartIfIdle(ctx, st.OwnerID, sig.Symbol, s.cfg.Timeframe)
		if err != nil {
			logger.Warnf("scanner: auto-start for %s: %v", st.OwnerID, err)
			continue
		}
		if started {
			logger.Infof("scanner: session %s auto-started for %s on %s", sess.ID, st.OwnerID, sig.Symbol)
		}
	}
}
