package market

import "context"

// CandleSource returns closed candles, oldest first.
type CandleSource interface {
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// SymbolSource ranks tradable USDT pairs by quote volume.
type SymbolSource interface {
	TopSymbols(ctx context.Context, limit int) ([]string, error)
}

type OpenInterestSource interface {
	OpenInterest(ctx context.Context, symbol string) (*OpenInterest, error)
}

// PriceSource quotes the latest trade, which may sit inside a candle that
// has not closed yet.
type PriceSource interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// Source is the exchange-facing surface used by the loops.
type Source interface {
	CandleSource
	SymbolSource
	OpenInterestSource
	PriceSource
}

type MacroProvider interface {
	FearGreed(ctx context.Context) (*FearGreed, error)
}

type NewsProvider interface {
	News(ctx context.Context, symbol string) NewsReport
}

type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, symbol string) (*Fundamentals, error)
}

// AnalyticsProvider classifies regimes and computes indicator snapshots.
type AnalyticsProvider interface {
	DetectRegime(ctx context.Context, symbol, timeframe string, candles []Candle) (*Regime, error)
	AnalyzeTechnicals(ctx context.Context, symbol, timeframe string, candles []Candle) (*Technicals, error)
}
