package decision

import (
	"verge/internal/market"
	"verge/internal/pkg/symbol"
	"verge/internal/types"
)

type Weights struct {
	Technical    float64
	Quantitative float64
	Sentiment    float64
	Fundamental  float64
}

// Thresholds map a clamped score onto a decision; Entry > Prepare > Context.
type Thresholds struct {
	Entry   int
	Prepare int
	Context int
}

func (t Thresholds) Decide(score int) Decision {
	switch {
	case score >= t.Entry:
		return Entry
	case score >= t.Prepare:
		return Prepare
	case score >= t.Context:
		return Context
	default:
		return Ignore
	}
}

// Profile is the rule set of one trading style. The weights and thresholds
// it exposes are the only copy the engine reads.
type Profile interface {
	Style() types.Style
	Weights() Weights
	Thresholds() Thresholds
	ValidRegimes() []market.RegimeType
	RequiredConfirmations() int
	ConfirmationTimeframe(primary string) string
	// ValidateEntry is the hard setup gate. Missing signals pass.
	ValidateEntry(mc *MarketContext) (bool, string)
	// ApplyPenalties scales the weighted score and describes what it applied.
	ApplyPenalties(mc *MarketContext, score float64) (float64, string)
	// IsInvalidated is consulted only while the session is Prepared.
	IsInvalidated(mc *MarketContext) (bool, string)
}

type baseProfile struct {
	style         types.Style
	weights       Weights
	thresholds    Thresholds
	regimes       []market.RegimeType
	confirmations int
	// confirmTF is a fixed higher timeframe; empty means "same as primary"
	// unless stepUp is set.
	confirmTF string
	stepUp    bool
}

func (p baseProfile) Style() types.Style                { return p.style }
func (p baseProfile) Weights() Weights                  { return p.weights }
func (p baseProfile) Thresholds() Thresholds            { return p.thresholds }
func (p baseProfile) ValidRegimes() []market.RegimeType { return p.regimes }

func (p baseProfile) RequiredConfirmations() int {
	if p.confirmations < 1 {
		return 1
	}
	return p.confirmations
}

func (p baseProfile) ConfirmationTimeframe(primary string) string {
	switch {
	case p.confirmTF != "":
		return p.confirmTF
	case p.stepUp:
		return symbol.StepUp(primary)
	default:
		return symbol.Interval(primary)
	}
}

func (p baseProfile) ValidateEntry(*MarketContext) (bool, string) { return true, "" }

func (p baseProfile) ApplyPenalties(_ *MarketContext, score float64) (float64, string) {
	return score, ""
}

func (p baseProfile) IsInvalidated(*MarketContext) (bool, string) { return false, "" }

// AllowsRegime reports whether r is tradable for p. An unknown regime is
// always allowed.
func AllowsRegime(p Profile, r market.RegimeType) bool {
	if r == "" {
		return true
	}
	for _, v := range p.ValidRegimes() {
		if v == r {
			return true
		}
	}
	return false
}

var profiles = map[types.Style]Profile{
	types.StyleScalping:        scalping,
	types.StyleDayTrading:      dayTrading,
	types.StyleSwingTrading:    swingTrading,
	types.StylePositionTrading: positionTrading,
	types.StyleGridTrading:     gridTrading,
	types.StyleHODL:            hodl,
}

// GetProfile is total: unknown styles, including Auto, get the default profile.
func GetProfile(style types.Style) Profile {
	if p, ok := profiles[style]; ok {
		return p
	}
	return fallbackProfile
}
