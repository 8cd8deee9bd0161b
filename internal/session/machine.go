package session

import (
	"time"

	"github.com/shopspring/decimal"

	"verge/internal/decision"
	"verge/internal/types"
)

type ExitReason string

const (
	ExitTakeProfit ExitReason = "TakeProfit"
	ExitStopLoss   ExitReason = "StopLoss"
)

// Transition describes what a state machine step did to a session.
type Transition struct {
	From        types.Stage
	To          types.Stage
	Entered     bool
	Exit        ExitReason
	Invalidated bool
}

func (t Transition) Changed() bool { return t.From != t.To }

var hundred = decimal.NewFromInt(100)

// Targets derives take-profit and stop-loss prices from an entry. Percentages
// are whole percent (2 means 2%).
func Targets(entry decimal.Decimal, dir types.Direction, tpPct, slPct decimal.Decimal) (tp, sl decimal.Decimal) {
	tpFactor := tpPct.Div(hundred)
	slFactor := slPct.Div(hundred)
	one := decimal.NewFromInt(1)
	if dir == types.DirectionShort {
		return entry.Mul(one.Sub(tpFactor)), entry.Mul(one.Add(slFactor))
	}
	return entry.Mul(one.Add(tpFactor)), entry.Mul(one.Sub(slFactor))
}

// ApplyDecision folds one evaluation cycle into s. price is the close the
// decision was made on and becomes the entry price on Entry. Only
// Evaluating and Prepared sessions are affected.
func ApplyDecision(s *Session, st *Strategy, res decision.Result, price decimal.Decimal, now time.Time) Transition {
	tr := Transition{From: s.Stage, To: s.Stage}
	if s.Stage != types.StageEvaluating && s.Stage != types.StagePrepared {
		return tr
	}
	at := now.UTC()
	s.LastEvaluatedAt = &at
	s.LastScore = res.Score
	s.LastDecision = res.Decision.String()
	s.Confirmations = res.Confirmations
	s.recordScore(res.Score)

	switch {
	case res.Invalidated:
		// Prepared setups that stop holding are reported, not demoted.
		tr.Invalidated = true
		s.Confirmations = 0
	case res.Decision == decision.Entry:
		enter(s, st, res.Direction, price)
		tr.Entered = true
	case res.Decision == decision.Prepare && s.Stage == types.StageEvaluating:
		s.Stage = types.StagePrepared
	}
	tr.To = s.Stage
	return tr
}

func enter(s *Session, st *Strategy, dir types.Direction, price decimal.Decimal) {
	if dir != types.DirectionShort {
		dir = types.DirectionLong
	}
	tpPct, slPct := defaultTakeProfitPct, defaultStopLossPct
	if st != nil {
		tpPct, slPct = st.TakeProfitPct, st.StopLossPct
	}
	tp, sl := Targets(price, dir, tpPct, slPct)
	s.Stage = types.StageBuyActive
	s.SelectedDirection = dir
	s.EntryPrice = decimal.NewNullDecimal(price)
	s.TakeProfit = decimal.NewNullDecimal(tp)
	s.StopLoss = decimal.NewNullDecimal(sl)
}

// CheckExit moves a BuyActive session to SellActive once price crosses one of
// its targets. Sessions without targets are left alone.
func CheckExit(s *Session, price decimal.Decimal, now time.Time) Transition {
	tr := Transition{From: s.Stage, To: s.Stage}
	if s.Stage != types.StageBuyActive || !s.TakeProfit.Valid || !s.StopLoss.Valid {
		return tr
	}
	at := now.UTC()
	s.LastEvaluatedAt = &at
	tp, sl := s.TakeProfit.Decimal, s.StopLoss.Decimal
	if s.SelectedDirection == types.DirectionShort {
		switch {
		case price.LessThanOrEqual(tp):
			tr.Exit = ExitTakeProfit
		case price.GreaterThanOrEqual(sl):
			tr.Exit = ExitStopLoss
		}
	} else {
		switch {
		case price.GreaterThanOrEqual(tp):
			tr.Exit = ExitTakeProfit
		case price.LessThanOrEqual(sl):
			tr.Exit = ExitStopLoss
		}
	}
	if tr.Exit != "" {
		s.Stage = types.StageSellActive
		tr.To = s.Stage
	}
	return tr
}

// Advance is the manual +1 step, capped at SellActive.
func Advance(s *Session) Transition {
	tr := Transition{From: s.Stage}
	s.Stage = s.Stage.Next()
	tr.To = s.Stage
	return tr
}
