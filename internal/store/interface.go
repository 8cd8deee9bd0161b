package store

import (
	"context"
	"errors"

	"verge/internal/session"
)

// ErrConflict is returned when an update carries a stale Version. Callers
// reload and retry.
var ErrConflict = errors.New("store: version conflict")

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Sessions returns the session repository within this transaction.
	Sessions() SessionRepository
	// Strategies returns the strategy repository within this transaction.
	Strategies() StrategyRepository
}

// Store is the entry point for session and strategy persistence.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	Sessions() SessionRepository
	Strategies() StrategyRepository
	// Close closes the store connection.
	Close() error
}

// SessionRepository persists hunting sessions. Lookups of missing rows
// return session.ErrNotFound.
type SessionRepository interface {
	Create(ctx context.Context, s *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	ActiveByOwner(ctx context.Context, ownerID string) (*session.Session, error)
	// ListMonitorable returns active sessions that have not reached a terminal stage.
	ListMonitorable(ctx context.Context) ([]*session.Session, error)
	// Update writes s when its Version matches the stored one and bumps it;
	// otherwise ErrConflict.
	Update(ctx context.Context, s *session.Session) error
	// DeactivateByOwner ends every active session of the owner.
	DeactivateByOwner(ctx context.Context, ownerID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// StrategyRepository persists trading strategies.
type StrategyRepository interface {
	Create(ctx context.Context, st *session.Strategy) error
	ActiveByOwner(ctx context.Context, ownerID string) (*session.Strategy, error)
	// ListAutoMode returns active strategies that opted into scanner sessions.
	ListAutoMode(ctx context.Context) ([]*session.Strategy, error)
	Update(ctx context.Context, st *session.Strategy) error
	Delete(ctx context.Context, id string) error
}

// LogRepository is the append-only analysis log.
type LogRepository interface {
	Append(ctx context.Context, rec session.AnalysisLog) (int64, error)
	// List returns the newest records first. An empty sessionID lists all.
	List(ctx context.Context, sessionID string, limit int) ([]session.AnalysisLog, error)
	// ListOwned restricts List to ownerID's records.
	ListOwned(ctx context.Context, ownerID, sessionID string, limit int) ([]session.AnalysisLog, error)
	PurgeSession(ctx context.Context, sessionID string) (int64, error)
}
