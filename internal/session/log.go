package session

import (
	"encoding/json"
	"time"
)

type LogType string

const (
	LogStandard           LogType = "Standard"
	LogOpportunityRanking LogType = "OpportunityRanking"
	LogAlertContext       LogType = "AlertContext"
	LogAlertPrepare       LogType = "AlertPrepare"
	LogAlertEntry         LogType = "AlertEntry"
	LogAlertInvalidated   LogType = "AlertInvalidated"
	LogAlertExit          LogType = "AlertExit"
	LogScanner            LogType = "Scanner"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelSuccess Level = "success"
	LevelDanger  Level = "danger"
)

// AnalysisLog is an append-only record of what the loops observed. Scanner
// records carry no session id.
type AnalysisLog struct {
	ID        int64           `json:"id"`
	OwnerID   string          `json:"owner_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Symbol    string          `json:"symbol"`
	Type      LogType         `json:"type"`
	Message   string          `json:"message"`
	Level     Level           `json:"level"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// WithPayload marshals v into the record; a value that fails to marshal is
// dropped.
func (l AnalysisLog) WithPayload(v any) AnalysisLog {
	if raw, err := json.Marshal(v); err == nil {
		l.Payload = raw
	}
	return l
}
