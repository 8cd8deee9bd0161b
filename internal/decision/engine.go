package decision

import (
	"fmt"
	"math"
	"strings"

	"verge/internal/logger"
	"verge/internal/market"
	"verge/internal/types"
)

const (
	baselineScore    = 50.0
	entryBandWidth   = 0.0025
	htfContradiction = "HTF contradiction"
	invalidatedTag   = "SETUP INVALIDATED"
)

// SessionState is the slice of a session the engine reads. Candidate symbol
// and direction are explicit so concurrent searches never share state.
type SessionState struct {
	ID            string
	Stage         types.Stage
	Symbol        string
	Direction     types.Direction
	Confirmations int
}

// Engine scores a market context against a trading style. It performs no
// I/O and holds no state; the confirmation counter travels in SessionState
// and Result.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) Evaluate(state SessionState, style types.Style, mc *MarketContext) Result {
	profile := GetProfile(style)
	dir := state.Direction
	if dir != types.DirectionShort {
		dir = types.DirectionLong
	}
	res := Result{Style: style, Direction: dir, Confidence: ConfidenceLow}
	if mc == nil {
		res.Reason = "IGNORE: no market context"
		return res
	}

	w := profile.Weights()
	tech := technicalScore(mc, dir)
	quant := quantitativeScore(mc, dir)
	sent := sentimentScore(mc, dir)
	fund := fundamentalScore(mc)
	res.Weighted = map[string]float64{
		CategoryTechnical:    round2(tech * w.Technical),
		CategoryQuantitative: round2(quant * w.Quantitative),
		CategorySentiment:    round2(sent * w.Sentiment),
		CategoryFundamental:  round2(fund * w.Fundamental),
	}
	raw := tech*w.Technical + quant*w.Quantitative + sent*w.Sentiment + fund*w.Fundamental
	res.RawScore = round2(raw)
	res.Confidence = confidence(mc)

	if state.Stage == types.StagePrepared {
		if bad, why := profile.IsInvalidated(mc); bad {
			res.Invalidated = true
			res.Reason = fmt.Sprintf("%s: %s", invalidatedTag, why)
			logger.Warnf("session %s %s: %s", state.ID, style, res.Reason)
			return res
		}
	}
	if r := mc.RegimeType(); !AllowsRegime(profile, r) {
		res.Reason = fmt.Sprintf("IGNORE: Invalid regime '%s' for %s style", r, style)
		return res
	}
	if ok, why := profile.ValidateEntry(mc); !ok {
		res.Reason = "IGNORE: " + why
		return res
	}

	final, penaltyNote := profile.ApplyPenalties(mc, raw)
	score := int(clamp(final, 0, 100))
	th := profile.Thresholds()
	decision := th.Decide(score)
	notes := []string{fmt.Sprintf("Score: %d. Style: %s.", score, style)}
	if penaltyNote != "" {
		notes = append(notes, penaltyNote)
	}

	if decision == Entry {
		if conflict, why := contradictsHigherTimeframe(mc, style, dir); conflict {
			decision = Prepare
			score = min(score, th.Entry-1)
			notes = append(notes, fmt.Sprintf("[%s: %s]", htfContradiction, why))
		}
	}

	required := profile.RequiredConfirmations()
	if decision == Entry {
		res.Confirmations = min(state.Confirmations+1, required)
		if res.Confirmations < required {
			decision = Prepare
			notes = append(notes, fmt.Sprintf("[WAITING: Needs %d cycles, have %d]", required, res.Confirmations))
		}
	}

	res.Decision = decision
	res.Score = score
	res.Reason = strings.Join(notes, " ")
	if decision >= Prepare {
		if last, ok := mc.LastClose(); ok && last > 0 {
			res.EntryMin = last * (1 - entryBandWidth)
			res.EntryMax = last * (1 + entryBandWidth)
		}
	}
	logger.Debugf("session %s %s %s %s: %s score=%d raw=%.2f", state.ID, mc.Symbol, style, dir, decision, score, raw)
	return res
}

// contradictsHigherTimeframe flags a long against a bearish higher timeframe
// or a short against a bullish one. Grid setups are range-bound and exempt.
func contradictsHigherTimeframe(mc *MarketContext, style types.Style, dir types.Direction) (bool, string) {
	if style == types.StyleGridTrading || mc.HigherTimeframe == nil {
		return false, ""
	}
	htf := mc.HigherTimeframe.RegimeType()
	switch {
	case dir == types.DirectionLong && htf == market.RegimeBearTrend:
		return true, fmt.Sprintf("cannot Long while %s is in BearTrend", mc.HigherTimeframe.Timeframe)
	case dir == types.DirectionShort && htf == market.RegimeBullTrend:
		return true, fmt.Sprintf("cannot Short while %s is in BullTrend", mc.HigherTimeframe.Timeframe)
	}
	return false, ""
}

func technicalScore(mc *MarketContext, dir types.Direction) float64 {
	t := mc.Technicals
	if t == nil {
		return baselineScore
	}
	d := dir.Sign()
	score := baselineScore
	switch {
	case t.RSI < 30:
		score += 20 * d
	case t.RSI > 70:
		score -= 20 * d
	}
	switch {
	case t.MACDHistogram > 0:
		score += 15 * d
	case t.MACDHistogram < 0:
		score -= 15 * d
	}
	return clamp(score, 0, 100)
}

func quantitativeScore(mc *MarketContext, dir types.Direction) float64 {
	r := mc.Regime
	if r == nil {
		return baselineScore
	}
	d := dir.Sign()
	score := baselineScore + r.TrendStrength/2
	switch r.Type {
	case market.RegimeBullTrend:
		score += 20 * d
	case market.RegimeBearTrend:
		score -= 20 * d
	}
	return clamp(score, 0, 100)
}

// sentimentScore reads extreme fear as a contrarian long signal and weighs
// the news label by the trust of the provider that produced it.
func sentimentScore(mc *MarketContext, dir types.Direction) float64 {
	d := dir.Sign()
	score := baselineScore
	if fg := mc.FearGreed; fg != nil {
		switch {
		case fg.Value < 20:
			score += 25 * d
		case fg.Value > 80:
			score -= 25 * d
		}
	}
	if s := mc.Sentiment; s != nil {
		trust := s.Source.Trust()
		switch s.Label {
		case market.SentimentPositive:
			score += 20 * trust * d
		case market.SentimentNegative:
			score -= 20 * trust * d
		}
	}
	return clamp(score, 0, 100)
}

func fundamentalScore(*MarketContext) float64 {
	return baselineScore
}

func confidence(mc *MarketContext) Confidence {
	points := 0
	if adx, ok := mc.Technicals.Trend(); ok {
		switch {
		case adx > 30:
			points += 40
		case adx > 20:
			points += 20
		}
	}
	if r := mc.Regime; r != nil && r.TrendStrength > 60 {
		points += 30
	}
	if s, r := mc.Sentiment, mc.RegimeType(); s != nil {
		if (s.Label == market.SentimentPositive && r == market.RegimeBullTrend) ||
			(s.Label == market.SentimentNegative && r == market.RegimeBearTrend) {
			points += 30
		}
	}
	switch {
	case points >= 80:
		return ConfidenceHigh
	case points >= 40:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
