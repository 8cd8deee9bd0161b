package types

import (
	"fmt"
	"strings"
)

// Stage is the lifecycle position of a hunting session.
type Stage int

const (
	StageEvaluating Stage = 1
	StagePrepared   Stage = 2
	StageBuyActive  Stage = 3
	StageSellActive Stage = 4
)

func (s Stage) String() string {
	switch s {
	case StageEvaluating:
		return "Evaluating"
	case StagePrepared:
		return "Prepared"
	case StageBuyActive:
		return "BuyActive"
	case StageSellActive:
		return "SellActive"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

func (s Stage) Valid() bool {
	return s >= StageEvaluating && s <= StageSellActive
}

// Terminal reports whether the automatic loop leaves the session alone.
func (s Stage) Terminal() bool {
	return s == StageSellActive
}

// Next is the manual advance: +1, capped at SellActive.
func (s Stage) Next() Stage {
	if s >= StageSellActive {
		return StageSellActive
	}
	if s < StageEvaluating {
		return StageEvaluating
	}
	return s + 1
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "evaluating", "1":
		*s = StageEvaluating
	case "prepared", "2":
		*s = StagePrepared
	case "buyactive", "3":
		*s = StageBuyActive
	case "sellactive", "4":
		*s = StageSellActive
	default:
		return fmt.Errorf("unknown stage %q", string(b))
	}
	return nil
}
