package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"verge/internal/pkg/symbol"
	"verge/internal/types"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrOwnership = errors.New("resource belongs to another owner")
	ErrInvariant = errors.New("invariant violation")
	ErrInactive  = errors.New("session is no longer active")
)

// HistoryLimit bounds Session.History.
const HistoryLimit = 10

// Session is one hunt of an owner. At most one session per owner is active.
type Session struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Symbol    string      `json:"symbol"`
	Timeframe string      `json:"timeframe"`
	Stage     types.Stage `json:"stage"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	Active    bool        `json:"active"`

	EntryPrice decimal.NullDecimal `json:"entry_price"`
	TakeProfit decimal.NullDecimal `json:"take_profit"`
	StopLoss   decimal.NullDecimal `json:"stop_loss"`

	Confirmations   int        `json:"confirmations"`
	History         []int      `json:"history,omitempty"`
	LastEvaluatedAt *time.Time `json:"last_evaluated_at,omitempty"`
	LastScore       int        `json:"last_score"`
	LastDecision    string     `json:"last_decision,omitempty"`

	// Selected* hold the candidate adopted by an AUTO search.
	SelectedSymbol    string          `json:"selected_symbol,omitempty"`
	SelectedStyle     types.Style     `json:"selected_style,omitempty"`
	SelectedDirection types.Direction `json:"selected_direction,omitempty"`

	Version int `json:"version"`
}

func New(ownerID, sym, timeframe string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Symbol:    symbol.Normalize(sym),
		Timeframe: symbol.Interval(timeframe),
		Stage:     types.StageEvaluating,
		StartedAt: now.UTC(),
		Active:    true,
	}
}

func (s *Session) IsAuto() bool { return symbol.IsAuto(s.Symbol) }

// TradedSymbol is the concrete pair the session follows: the fixed symbol,
// or the adopted AUTO winner. Empty while an AUTO search has no winner.
func (s *Session) TradedSymbol() string {
	if !s.IsAuto() {
		return s.Symbol
	}
	return s.SelectedSymbol
}

// Deactivate ends the session. It is idempotent.
func (s *Session) Deactivate(now time.Time) {
	if !s.Active {
		return
	}
	s.Active = false
	t := now.UTC()
	s.EndedAt = &t
}

func (s *Session) recordScore(score int) {
	s.History = append(s.History, score)
	if n := len(s.History); n > HistoryLimit {
		s.History = append([]int(nil), s.History[n-HistoryLimit:]...)
	}
}

// Strategy is the owner's trading preferences for the active hunt.
type Strategy struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Name          string          `json:"name"`
	Direction     types.Direction `json:"direction"`
	Symbols       []string        `json:"symbols"`
	Style         types.Style     `json:"style"`
	Leverage      int             `json:"leverage"`
	Capital       decimal.Decimal `json:"capital"`
	TakeProfitPct decimal.Decimal `json:"take_profit_pct"`
	StopLossPct   decimal.Decimal `json:"stop_loss_pct"`
	AutoMode      bool            `json:"auto_mode"`
	Notifications bool            `json:"notifications"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	Version       int             `json:"version"`
}

// StrategyInput is what a caller supplies to create a strategy.
type StrategyInput struct {
	Name          string          `json:"name"`
	Direction     types.Direction `json:"direction"`
	Symbols       []string        `json:"symbols"`
	Style         types.Style     `json:"style"`
	Leverage      int             `json:"leverage"`
	Capital       decimal.Decimal `json:"capital"`
	TakeProfitPct decimal.Decimal `json:"take_profit_pct"`
	StopLossPct   decimal.Decimal `json:"stop_loss_pct"`
	AutoMode      bool            `json:"auto_mode"`
	Notifications bool            `json:"notifications"`
}

var (
	defaultTakeProfitPct = decimal.NewFromInt(3)
	defaultStopLossPct   = decimal.NewFromFloat(1.5)
)

func NewStrategy(ownerID string, in StrategyInput, now time.Time) *Strategy {
	st := &Strategy{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Name:          in.Name,
		Direction:     in.Direction,
		Symbols:       symbol.NormalizeList(in.Symbols),
		Style:         in.Style,
		Leverage:      in.Leverage,
		Capital:       in.Capital,
		TakeProfitPct: in.TakeProfitPct,
		StopLossPct:   in.StopLossPct,
		AutoMode:      in.AutoMode,
		Notifications: in.Notifications,
		Active:        true,
		CreatedAt:     now.UTC(),
	}
	if st.Direction == "" {
		st.Direction = types.DirectionAuto
	}
	if st.Style == "" {
		st.Style = types.StyleAuto
	}
	if st.Leverage < 1 {
		st.Leverage = 1
	}
	if !st.TakeProfitPct.IsPositive() {
		st.TakeProfitPct = defaultTakeProfitPct
	}
	if !st.StopLossPct.IsPositive() {
		st.StopLossPct = defaultStopLossPct
	}
	return st
}
