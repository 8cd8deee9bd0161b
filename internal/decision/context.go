package decision

import (
	"verge/internal/market"
)

// MarketContext is the merged signal view of one (symbol, timeframe) as of
// the last candle. Values are shared between sessions and goroutines and
// must not be mutated after assembly; use the With* helpers to derive.
type MarketContext struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	// AsOf is the open time (epoch ms) of the last candle.
	AsOf int64 `json:"as_of"`

	FearGreed    *market.FearGreed    `json:"fear_greed,omitempty"`
	News         []market.NewsItem    `json:"news,omitempty"`
	Sentiment    *market.Sentiment    `json:"sentiment,omitempty"`
	Fundamentals *market.Fundamentals `json:"fundamentals,omitempty"`
	OpenInterest *market.OpenInterest `json:"open_interest,omitempty"`
	Regime       *market.Regime       `json:"regime,omitempty"`
	Technicals   *market.Technicals   `json:"technicals,omitempty"`
	Candles      []market.Candle      `json:"-"`

	HigherTimeframe *MarketContext `json:"higher_timeframe,omitempty"`
}

// WithHigherTimeframe returns a shallow copy carrying htf.
func (c *MarketContext) WithHigherTimeframe(htf *MarketContext) *MarketContext {
	if c == nil {
		return nil
	}
	out := *c
	out.HigherTimeframe = htf
	return &out
}

// WithFearGreed returns a shallow copy carrying the cycle's macro reading.
func (c *MarketContext) WithFearGreed(fg *market.FearGreed) *MarketContext {
	if c == nil {
		return nil
	}
	out := *c
	out.FearGreed = fg
	return &out
}

func (c *MarketContext) LastClose() (float64, bool) {
	if c == nil {
		return 0, false
	}
	last, ok := market.Last(c.Candles)
	if !ok {
		return 0, false
	}
	return last.Close, true
}

// RegimeType is empty when no classification is available.
func (c *MarketContext) RegimeType() market.RegimeType {
	if c == nil || c.Regime == nil {
		return ""
	}
	return c.Regime.Type
}

// ContextKey identifies a market context inside one monitor cycle.
type ContextKey struct {
	Symbol    string
	Timeframe string
}

type ContextMap map[ContextKey]*MarketContext

func (m ContextMap) Get(symbol, timeframe string) *MarketContext {
	if m == nil {
		return nil
	}
	return m[ContextKey{Symbol: symbol, Timeframe: timeframe}]
}
