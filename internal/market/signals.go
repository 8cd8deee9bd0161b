package market

import (
	"strings"
	"time"
)

type FearGreed struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	Timestamp      time.Time `json:"timestamp"`
}

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// ParseSentimentLabel folds the vocabularies of the news providers
// ("bullish", "Positive", "BEARISH", ...) onto the three labels.
func ParseSentimentLabel(raw string) SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "bullish", "very_bullish", "very bullish":
		return SentimentPositive
	case "negative", "bearish", "very_bearish", "very bearish":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Provenance names which link of the news chain produced a sentiment.
type Provenance string

const (
	ProvenancePrimary   Provenance = "cryptocurrency.cv"
	ProvenanceSecondary Provenance = "CryptoCompare"
	ProvenanceSynthetic Provenance = "Synthetic Fallback (Low Weight)"
)

// Trust scales the weight a sentiment reading gets in scoring.
func (p Provenance) Trust() float64 {
	switch p {
	case ProvenanceSecondary:
		return 0.75
	case ProvenanceSynthetic:
		return 0.5
	default:
		return 1.0
	}
}

type NewsItem struct {
	Title       string         `json:"title"`
	URL         string         `json:"url,omitempty"`
	Source      string         `json:"source,omitempty"`
	PublishedAt time.Time      `json:"published_at"`
	Sentiment   SentimentLabel `json:"sentiment,omitempty"`
}

type Sentiment struct {
	Label  SentimentLabel `json:"label"`
	Score  float64        `json:"score"`
	Source Provenance     `json:"source"`
}

// NewsReport is what the news chain hands to the snapshot assembler.
type NewsReport struct {
	Items     []NewsItem `json:"items"`
	Sentiment Sentiment  `json:"sentiment"`
}

type Fundamentals struct {
	PriceUSD  float64 `json:"price_usd"`
	MarketCap float64 `json:"market_cap"`
	Volume24h float64 `json:"volume_24h"`
}

// VolumeToMarketCap returns 24h volume over market cap, zero when unknown.
func (f Fundamentals) VolumeToMarketCap() float64 {
	if f.MarketCap <= 0 {
		return 0
	}
	return f.Volume24h / f.MarketCap
}

type OpenInterest struct {
	Symbol    string    `json:"symbol"`
	Contracts float64   `json:"contracts"`
	Timestamp time.Time `json:"timestamp"`
}

type RegimeType string

const (
	RegimeBullTrend      RegimeType = "BullTrend"
	RegimeBearTrend      RegimeType = "BearTrend"
	RegimeRanging        RegimeType = "Ranging"
	RegimeHighVolatility RegimeType = "HighVolatility"
	RegimeLowVolatility  RegimeType = "LowVolatility"
)

func ParseRegimeType(raw string) (RegimeType, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", "")) {
	case "bulltrend", "bull":
		return RegimeBullTrend, true
	case "beartrend", "bear":
		return RegimeBearTrend, true
	case "ranging", "range":
		return RegimeRanging, true
	case "highvolatility", "highvol":
		return RegimeHighVolatility, true
	case "lowvolatility", "lowvol":
		return RegimeLowVolatility, true
	default:
		return "", false
	}
}

type Regime struct {
	Type            RegimeType `json:"regime"`
	VolatilityScore float64    `json:"volatility_score"`
	TrendStrength   float64    `json:"trend_strength"`
}

// Technicals holds indicator readings. ADX is nil when the series was too
// short to compute it.
type Technicals struct {
	RSI           float64  `json:"rsi"`
	MACDHistogram float64  `json:"macd_histogram"`
	ADX           *float64 `json:"adx,omitempty"`
	BBWidth       float64  `json:"bb_width"`
}

// Trend returns the ADX reading and whether one was computed.
func (t *Technicals) Trend() (float64, bool) {
	if t == nil || t.ADX == nil {
		return 0, false
	}
	return *t.ADX, true
}
