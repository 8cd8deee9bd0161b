package livehttp

import (
	"context"

	"verge/internal/session"
)

// OwnerHeader carries the caller identity; authentication happens upstream.
const OwnerHeader = "X-Owner-ID"

// HuntService is the operation surface the router exposes.
type HuntService interface {
	StartSession(ctx context.Context, ownerID, sym, timeframe string) (*session.Session, error)
	GetCurrentSession(ctx context.Context, ownerID string) (*session.Session, error)
	AdvanceStage(ctx context.Context, ownerID, sessionID string) (*session.Session, error)
	FinalizeHunt(ctx context.Context, ownerID, sessionID string) (*session.Session, error)
	GetAnalysisLogs(ctx context.Context, ownerID, sessionID string, limit int) ([]session.AnalysisLog, error)
	CreateStrategy(ctx context.Context, ownerID string, in session.StrategyInput) (*session.Strategy, error)
	ActiveStrategy(ctx context.Context, ownerID string) (*session.Strategy, error)
}

type startSessionRequest struct {
	Symbol    string `json:"symbol" binding:"required"`
	Timeframe string `json:"timeframe" binding:"required"`
}
