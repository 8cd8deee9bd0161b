package model

import (
	"gorm.io/datatypes"
)

type SessionModel struct {
	ID                string         `gorm:"column:id;primaryKey"`
	OwnerID           string         `gorm:"column:owner_id;index:idx_sessions_owner_active,priority:1"`
	Symbol            string         `gorm:"column:symbol"`
	Timeframe         string         `gorm:"column:timeframe"`
	Stage             int            `gorm:"column:stage"`
	Active            bool           `gorm:"column:active;index:idx_sessions_owner_active,priority:2"`
	StartUnix         int64          `gorm:"column:start_time"`
	EndUnix           *int64         `gorm:"column:end_time"`
	EntryPrice        *string        `gorm:"column:entry_price"`
	TakeProfit        *string        `gorm:"column:take_profit"`
	StopLoss          *string        `gorm:"column:stop_loss"`
	Confirmations     int            `gorm:"column:confirmations"`
	HistoryJSON       datatypes.JSON `gorm:"column:history_json;type:TEXT"`
	LastEvalUnix      *int64         `gorm:"column:last_evaluated_at"`
	LastScore         int            `gorm:"column:last_score"`
	LastDecision      string         `gorm:"column:last_decision"`
	SelectedSymbol    string         `gorm:"column:selected_symbol"`
	SelectedStyle     string         `gorm:"column:selected_style"`
	SelectedDirection string         `gorm:"column:selected_direction"`
	Version           int            `gorm:"column:version"`
	CreatedAtUnix     int64          `gorm:"column:created_at"`
	UpdatedAtUnix     int64          `gorm:"column:updated_at"`
}

func (SessionModel) TableName() string { return "trading_sessions" }

type StrategyModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	OwnerID       string         `gorm:"column:owner_id;index"`
	Name          string         `gorm:"column:name"`
	Direction     string         `gorm:"column:direction"`
	SymbolsJSON   datatypes.JSON `gorm:"column:symbols_json;type:TEXT"`
	Style         string         `gorm:"column:style"`
	Leverage      int            `gorm:"column:leverage"`
	Capital       string         `gorm:"column:capital"`
	TakeProfitPct string         `gorm:"column:take_profit_pct"`
	StopLossPct   string         `gorm:"column:stop_loss_pct"`
	AutoMode      bool           `gorm:"column:auto_mode"`
	Notifications bool           `gorm:"column:notifications"`
	Active        bool           `gorm:"column:active;index"`
	Version       int            `gorm:"column:version"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (StrategyModel) TableName() string { return "trading_strategies" }
