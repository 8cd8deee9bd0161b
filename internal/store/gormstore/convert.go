package gormstore

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"verge/internal/session"
	storemodel "verge/internal/store/model"
	"verge/internal/types"
)

func newSessionModel(s *session.Session) storemodel.SessionModel {
	return storemodel.SessionModel{
		ID:                s.ID,
		OwnerID:           s.OwnerID,
		Symbol:            s.Symbol,
		Timeframe:         s.Timeframe,
		Stage:             int(s.Stage),
		Active:            s.Active,
		StartUnix:         s.StartedAt.UnixMilli(),
		EndUnix:           timeToMillisPtr(s.EndedAt),
		EntryPrice:        nullDecimalToString(s.EntryPrice),
		TakeProfit:        nullDecimalToString(s.TakeProfit),
		StopLoss:          nullDecimalToString(s.StopLoss),
		Confirmations:     s.Confirmations,
		HistoryJSON:       mustJSON(s.History),
		LastEvalUnix:      timeToMillisPtr(s.LastEvaluatedAt),
		LastScore:         s.LastScore,
		LastDecision:      s.LastDecision,
		SelectedSymbol:    s.SelectedSymbol,
		SelectedStyle:     string(s.SelectedStyle),
		SelectedDirection: string(s.SelectedDirection),
		Version:           s.Version,
	}
}

func sessionModelToDomain(m storemodel.SessionModel) *session.Session {
	s := &session.Session{
		ID:                m.ID,
		OwnerID:           m.OwnerID,
		Symbol:            m.Symbol,
		Timeframe:         m.Timeframe,
		Stage:             types.Stage(m.Stage),
		StartedAt:         time.UnixMilli(m.StartUnix).UTC(),
		EndedAt:           millisToTimePtr(m.EndUnix),
		Active:            m.Active,
		EntryPrice:        stringToNullDecimal(m.EntryPrice),
		TakeProfit:        stringToNullDecimal(m.TakeProfit),
		StopLoss:          stringToNullDecimal(m.StopLoss),
		Confirmations:     m.Confirmations,
		LastEvaluatedAt:   millisToTimePtr(m.LastEvalUnix),
		LastScore:         m.LastScore,
		LastDecision:      m.LastDecision,
		SelectedSymbol:    m.SelectedSymbol,
		SelectedStyle:     types.Style(m.SelectedStyle),
		SelectedDirection: types.Direction(m.SelectedDirection),
		Version:           m.Version,
	}
	if len(m.HistoryJSON) > 0 {
		_ = json.Unmarshal(m.HistoryJSON, &s.History)
	}
	return s
}

func newStrategyModel(st *session.Strategy) storemodel.StrategyModel {
	return storemodel.StrategyModel{
		ID:            st.ID,
		OwnerID:       st.OwnerID,
		Name:          st.Name,
		Direction:     string(st.Direction),
		SymbolsJSON:   mustJSON(st.Symbols),
		Style:         string(st.Style),
		Leverage:      st.Leverage,
		Capital:       st.Capital.String(),
		TakeProfitPct: st.TakeProfitPct.String(),
		StopLossPct:   st.StopLossPct.String(),
		AutoMode:      st.AutoMode,
		Notifications: st.Notifications,
		Active:        st.Active,
		Version:       st.Version,
		CreatedAtUnix: st.CreatedAt.UnixMilli(),
	}
}

func strategyModelToDomain(m storemodel.StrategyModel) *session.Strategy {
	st := &session.Strategy{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Name:          m.Name,
		Direction:     types.Direction(m.Direction),
		Style:         types.Style(m.Style),
		Leverage:      m.Leverage,
		Capital:       decimalOrZero(m.Capital),
		TakeProfitPct: decimalOrZero(m.TakeProfitPct),
		StopLossPct:   decimalOrZero(m.StopLossPct),
		AutoMode:      m.AutoMode,
		Notifications: m.Notifications,
		Active:        m.Active,
		Version:       m.Version,
		CreatedAt:     time.UnixMilli(m.CreatedAtUnix).UTC(),
	}
	if len(m.SymbolsJSON) > 0 {
		_ = json.Unmarshal(m.SymbolsJSON, &st.Symbols)
	}
	return st
}

// --------------------------- Helper Functions ------------------------------------

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}

func nullDecimalToString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func stringToNullDecimal(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func timeToMillisPtr(t *time.Time) *int64 {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UnixMilli()
	return &v
}

func millisToTimePtr(v *int64) *time.Time {
	if v == nil || *v <= 0 {
		return nil
	}
	t := time.UnixMilli(*v).UTC()
	return &t
}
