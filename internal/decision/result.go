package decision

import (
	"fmt"
	"strings"

	"verge/internal/types"
)

// Decision values are ordered; comparisons such as d >= Prepare are valid.
type Decision int

const (
	Ignore Decision = iota
	Context
	Prepare
	Entry
)

func (d Decision) String() string {
	switch d {
	case Context:
		return "Context"
	case Prepare:
		return "Prepare"
	case Entry:
		return "Entry"
	default:
		return "Ignore"
	}
}

func (d Decision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Decision) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "ignore":
		*d = Ignore
	case "context":
		*d = Context
	case "prepare":
		*d = Prepare
	case "entry":
		*d = Entry
	default:
		return fmt.Errorf("unknown decision %q", string(b))
	}
	return nil
}

type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

const (
	CategoryTechnical    = "Technical"
	CategoryQuantitative = "Quantitative"
	CategorySentiment    = "Sentiment"
	CategoryFundamental  = "Fundamental"
)

type Result struct {
	Decision   Decision           `json:"decision"`
	Confidence Confidence         `json:"confidence"`
	Score      int                `json:"score"`
	RawScore   float64            `json:"raw_score"`
	Reason     string             `json:"reason"`
	Weighted   map[string]float64 `json:"weighted_scores,omitempty"`
	EntryMin   float64            `json:"entry_min,omitempty"`
	EntryMax   float64            `json:"entry_max,omitempty"`

	Style     types.Style     `json:"style"`
	Direction types.Direction `json:"direction"`
	// Confirmations is the persistence counter the session should store
	// after this cycle.
	Confirmations int `json:"confirmations"`
	// Invalidated marks a Prepared setup that no longer holds.
	Invalidated bool `json:"invalidated,omitempty"`
}

// HasEntryBand reports whether an entry price band was computed.
func (r Result) HasEntryBand() bool {
	return r.EntryMin > 0 && r.EntryMax > 0
}
