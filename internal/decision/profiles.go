package decision

import (
	"fmt"
	"strings"

	"verge/internal/market"
	"verge/internal/types"
)

const (
	positionMinMarketCap = 500_000_000
	hodlMinMarketCap     = 100_000_000
	hodlMinVolumeRatio   = 0.05
	swingLookback        = 20
)

var (
	trendRegimes = []market.RegimeType{market.RegimeBullTrend, market.RegimeBearTrend}
	allRegimes   = []market.RegimeType{
		market.RegimeBullTrend,
		market.RegimeBearTrend,
		market.RegimeRanging,
		market.RegimeHighVolatility,
		market.RegimeLowVolatility,
	}
)

type penalties struct {
	score   float64
	reasons []string
}

func (p *penalties) apply(factor float64, reason string) {
	p.score *= factor
	p.reasons = append(p.reasons, reason)
}

func (p *penalties) result() (float64, string) {
	return p.score, strings.Join(p.reasons, " ")
}

type scalpingProfile struct{ baseProfile }

var scalping = scalpingProfile{baseProfile{
	style:         types.StyleScalping,
	weights:       Weights{Technical: 0.60, Quantitative: 0.25, Sentiment: 0.10, Fundamental: 0.05},
	thresholds:    Thresholds{Entry: 65, Prepare: 45, Context: 30},
	regimes:       []market.RegimeType{market.RegimeBullTrend, market.RegimeBearTrend, market.RegimeHighVolatility},
	confirmations: 1,
	stepUp:        true,
}}

func (scalpingProfile) ValidateEntry(mc *MarketContext) (bool, string) {
	t := mc.Technicals
	if t == nil {
		return true, ""
	}
	if t.RSI < 60 || t.RSI > 75 {
		return false, fmt.Sprintf("Scalping RSI %.1f outside momentum range (60-75)", t.RSI)
	}
	adx, ok := t.Trend()
	if !ok {
		return false, "Scalping: ADX unavailable, trend strength unconfirmed"
	}
	if adx < 22 {
		return false, fmt.Sprintf("Scalping ADX %.1f too weak for scalp (< 22)", adx)
	}
	return true, ""
}

func (scalpingProfile) ApplyPenalties(mc *MarketContext, score float64) (float64, string) {
	p := penalties{score: score}
	if mc.RegimeType() == market.RegimeRanging {
		p.apply(0.7, "[Ranging vs Scalp: -30%]")
	}
	return p.result()
}

func (scalpingProfile) IsInvalidated(mc *MarketContext) (bool, string) {
	if mc.RegimeType() == market.RegimeRanging {
		return true, "Market turned Ranging"
	}
	t := mc.Technicals
	if t == nil {
		return false, ""
	}
	if t.RSI < 55 {
		return true, fmt.Sprintf("RSI fell to %.0f", t.RSI)
	}
	if adx, ok := t.Trend(); ok && adx < 20 {
		return true, fmt.Sprintf("ADX fell to %.1f", adx)
	}
	return false, ""
}

type dayTradingProfile struct{ baseProfile }

var dayTrading = dayTradingProfile{baseProfile{
	style:         types.StyleDayTrading,
	weights:       Weights{Technical: 0.50, Quantitative: 0.25, Sentiment: 0.15, Fundamental: 0.10},
	thresholds:    Thresholds{Entry: 70, Prepare: 50, Context: 35},
	regimes:       trendRegimes,
	confirmations: 2,
	confirmTF:     "4h",
}}

func (dayTradingProfile) ValidateEntry(mc *MarketContext) (bool, string) {
	t := mc.Technicals
	if t == nil {
		return true, ""
	}
	if t.RSI < 50 || t.RSI > 70 {
		return false, fmt.Sprintf("Day RSI %.1f outside continuation zone (50-70)", t.RSI)
	}
	adx, ok := t.Trend()
	if !ok {
		return false, "Day: ADX unavailable, trend strength unconfirmed"
	}
	if adx < 25 {
		return false, fmt.Sprintf("Day ADX %.1f weak for DayTrade (< 25)", adx)
	}
	return true, ""
}

func (dayTradingProfile) ApplyPenalties(mc *MarketContext, score float64) (float64, string) {
	p := penalties{score: score}
	if mc.RegimeType() == market.RegimeRanging {
		p.apply(0.8, "[Ranging vs Day: -20%]")
	}
	if mc.Technicals != nil && mc.Technicals.RSI > 75 {
		p.apply(0.6, "[RSI extended: -40%]")
	}
	return p.result()
}

func (dayTradingProfile) IsInvalidated(mc *MarketContext) (bool, string) {
	if mc.RegimeType() == market.RegimeRanging {
		return true, "Market turned Ranging"
	}
	if adx, ok := mc.Technicals.Trend(); ok && adx < 20 {
		return true, fmt.Sprintf("ADX fell to %.1f", adx)
	}
	return false, ""
}

type swingTradingProfile struct{ baseProfile }

var swingTrading = swingTradingProfile{baseProfile{
	style:         types.StyleSwingTrading,
	weights:       Weights{Technical: 0.40, Quantitative: 0.25, Sentiment: 0.20, Fundamental: 0.15},
	thresholds:    Thresholds{Entry: 70, Prepare: 50, Context: 35},
	regimes:       []market.RegimeType{market.RegimeBullTrend, market.RegimeBearTrend, market.RegimeRanging},
	confirmations: 3,
	confirmTF:     "1d",
}}

// ValidateEntry requires the last close to break the range of the previous
// twenty candles.
func (swingTradingProfile) ValidateEntry(mc *MarketContext) (bool, string) {
	n := len(mc.Candles)
	if n < swingLookback+1 {
		return false, fmt.Sprintf("Swing: insufficient candles for breakout detection (%d < %d)", n, swingLookback+1)
	}
	window := mc.Candles[n-swingLookback-1 : n-1]
	high, low := window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	price := mc.Candles[n-1].Close
	if price > high || price < low {
		return true, ""
	}
	return false, fmt.Sprintf("Swing: price %.2f inside local range (%.2f - %.2f)", price, low, high)
}

func (swingTradingProfile) ApplyPenalties(mc *MarketContext, score float64) (float64, string) {
	p := penalties{score: score}
	if adx, ok := mc.Technicals.Trend(); ok && adx < 20 {
		p.apply(0.5, "[ADX < 20 vs Swing: -50%]")
	}
	return p.result()
}

func (swingTradingProfile) IsInvalidated(mc *MarketContext) (bool, string) {
	if adx, ok := mc.Technicals.Trend(); ok && adx < 15 {
		return true, fmt.Sprintf("ADX collapsed to %.1f", adx)
	}
	return false, ""
}

type positionTradingProfile struct{ baseProfile }

var positionTrading = positionTradingProfile{baseProfile{
	style:         types.StylePositionTrading,
	weights:       Weights{Technical: 0.25, Quantitative: 0.20, Sentiment: 0.25, Fundamental: 0.30},
	thresholds:    Thresholds{Entry: 75, Prepare: 55, Context: 40},
	regimes:       trendRegimes,
	confirmations: 4,
	confirmTF:     "1d",
}}

func (positionTradingProfile) ValidateEntry(mc *MarketContext) (bool, string) {
	if t := mc.Technicals; t != nil {
		adx, ok := t.Trend()
		if !ok {
			return false, "Position: ADX unavailable, trend strength unconfirmed"
		}
		if adx < 25 {
			return false, fmt.Sprintf("Position: ADX %.1f too weak for trend entry (< 25)", adx)
		}
	}
	if fg := mc.FearGreed; fg != nil && (fg.Value < 40 || fg.Value > 75) {
		return false, fmt.Sprintf("Position: F&G %d outside stable range (40-75)", fg.Value)
	}
	if f := mc.Fundamentals; f != nil && f.MarketCap > 0 && f.MarketCap < positionMinMarketCap {
		return false, fmt.Sprintf("Position: market cap $%.0f below long-term minimum ($500M)", f.MarketCap)
	}
	return true, ""
}

func (positionTradingProfile) ApplyPenalties(mc *MarketContext, score float64) (float64, string) {
	p := penalties{score: score}
	if mc.RegimeType() == market.RegimeRanging {
		p.apply(0.3, "[Ranging vs Position: -70%]")
	}
	if mc.FearGreed != nil && mc.FearGreed.Value > 80 {
		p.apply(0.7, "[Greed > 80 vs Position: -30%]")
	}
	return p.result()
}

func (positionTradingProfile) IsInvalidated(mc *MarketContext) (bool, string) {
	if mc.RegimeType() == market.RegimeRanging {
		return true, "Market changed to Ranging (unsuitable for Position)"
	}
	if fg := mc.FearGreed; fg != nil && (fg.Value < 40 || fg.Value > 75) {
		return true, fmt.Sprintf("F&G %d exited stable range (40-75)", fg.Value)
	}
	return false, ""
}

type gridTradingProfile struct{ baseProfile }

var gridTrading = gridTradingProfile{baseProfile{
	style:         types.StyleGridTrading,
	weights:       Weights{Technical: 0.35, Quantitative: 0.30, Sentiment: 0.20, Fundamental: 0.15},
	thresholds:    Thresholds{Entry: 65, Prepare: 45, Context: 30},
	regimes:       []market.RegimeType{market.RegimeRanging, market.RegimeLowVolatility},
	confirmations: 2,
	confirmTF:     "1h",
}}

func (gridTradingProfile) ValidateEntry(mc *MarketContext) (bool, string) {
	if t := mc.Technicals; t != nil {
		adx, ok := t.Trend()
		if !ok {
			return false, "Grid: ADX unavailable, range not confirmed"
		}
		if adx > 20 {
			return false, fmt.Sprintf("Grid: ADX %.1f indicates active trend (> 20)", adx)
		}
	}
	return true, ""
}

func (gridTradingProfile) ApplyPenalties(mc *MarketContext, score float64) (float64, string) {
	p := penalties{score: score}
	if adx, ok := mc.Technicals.Trend(); ok && adx > 25 {
		p.apply(0.2, "[ADX > 25 vs Grid: -80%]")
	}
	return p.result()
}

func (gridTradingProfile) IsInvalidated(mc *MarketContext) (bool, string) {
	if adx, ok := mc.Technicals.Trend(); ok && adx > 20 {
		return true, fmt.Sprintf("ADX %.1f rose above 20 (potential trend break)", adx)
	}
	return false, ""
}

type hodlProfile struct{ baseProfile }

var hodl = hodlProfile{baseProfile{
	style:         types.StyleHODL,
	weights:       Weights{Technical: 0.10, Quantitative: 0.15, Sentiment: 0.30, Fundamental: 0.45},
	thresholds:    Thresholds{Entry: 70, Prepare: 50, Context: 35},
	regimes:       allRegimes,
	confirmations: 1,
}}

func (hodlProfile) ValidateEntry(mc *MarketContext) (bool, string) {
	if fg := mc.FearGreed; fg != nil && fg.Value > 30 {
		return false, fmt.Sprintf("HODL: F&G %d not low enough for accumulation (> 30)", fg.Value)
	}
	if f := mc.Fundamentals; f != nil && f.MarketCap > 0 {
		if f.MarketCap < hodlMinMarketCap {
			return false, fmt.Sprintf("HODL: market cap $%.0f below maturity threshold ($100M)", f.MarketCap)
		}
		if ratio := f.VolumeToMarketCap(); ratio < hodlMinVolumeRatio {
			return false, fmt.Sprintf("HODL: volume/mcap ratio %.1f%% suggests low liquidity (< 5%%)", ratio*100)
		}
	}
	return true, ""
}

// IsInvalidated never fires: accumulation setups do not expire.
func (hodlProfile) IsInvalidated(*MarketContext) (bool, string) { return false, "" }

type defaultProfile struct{ baseProfile }

var fallbackProfile Profile = defaultProfile{baseProfile{
	style:         "Default",
	weights:       Weights{Technical: 0.40, Quantitative: 0.20, Sentiment: 0.20, Fundamental: 0.20},
	thresholds:    Thresholds{Entry: 70, Prepare: 50, Context: 30},
	regimes:       []market.RegimeType{market.RegimeBullTrend, market.RegimeBearTrend, market.RegimeRanging},
	confirmations: 1,
}}
