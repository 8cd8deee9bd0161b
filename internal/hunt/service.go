package hunt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"verge/internal/gateway/notifier"
	"verge/internal/logger"
	"verge/internal/pkg/symbol"
	"verge/internal/session"
	"verge/internal/store"
)

const (
	DefaultLogLimit    = 50
	MaxLogLimit        = 500
	maxConflictRetries = 3
)

// Service exposes the manual hunt operations. Every write reloads the
// session first, so a finalize always observes the latest cycle and an
// in-flight cycle observes the finalize.
type Service struct {
	store  store.Store
	logs   store.LogRepository
	notify notifier.Sink
	now    func() time.Time
}

func NewService(st store.Store, logs store.LogRepository, sink notifier.Sink) *Service {
	if sink == nil {
		sink = notifier.Nop{}
	}
	return &Service{store: st, logs: logs, notify: sink, now: time.Now}
}

// StartSession ends the owner's previous hunts and opens a new Evaluating one.
func (s *Service) StartSession(ctx context.Context, ownerID, sym, timeframe string) (*session.Session, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", session.ErrInvariant)
	}
	if !symbol.IsAuto(sym) && !symbol.IsValid(sym) {
		return nil, fmt.Errorf("%w: unsupported symbol %q", session.ErrInvariant, sym)
	}
	if strings.TrimSpace(timeframe) == "" {
		return nil, fmt.Errorf("%w: timeframe is required", session.ErrInvariant)
	}
	sess := session.New(ownerID, sym, timeframe, s.now())

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	closed, err := uow.Sessions().DeactivateByOwner(ctx, ownerID)
	if err == nil {
		err = uow.Sessions().Create(ctx, sess)
	}
	if err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	if closed > 0 {
		logger.Infof("owner %s: closed %d previous session(s)", ownerID, closed)
	}
	logger.Infof("session %s started: %s %s", sess.ID, sess.Symbol, sess.Timeframe)
	s.notify.Notify(ctx, notifier.Event{
		Type:      notifier.EventSessionStarted,
		OwnerID:   ownerID,
		SessionID: sess.ID,
		Symbol:    sess.Symbol,
		Stage:     sess.Stage.String(),
		Message:   fmt.Sprintf("Hunt started on %s (%s)", sess.Symbol, sess.Timeframe),
		Data:      sess,
	})
	return sess, nil
}

// StartIfIdle opens a session only when the owner has none active. It
// reports whether a session was created.
func (s *Service) StartIfIdle(ctx context.Context, ownerID, sym, timeframe string) (*session.Session, bool, error) {
	_, err := s.store.Sessions().ActiveByOwner(ctx, ownerID)
	switch {
	case err == nil:
		return nil, false, nil
	case !errors.Is(err, session.ErrNotFound):
		return nil, false, err
	}
	sess, err := s.StartSession(ctx, ownerID, sym, timeframe)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// GetCurrentSession returns nil without error when the owner is idle.
func (s *Service) GetCurrentSession(ctx context.Context, ownerID string) (*session.Session, error) {
	sess, err := s.store.Sessions().ActiveByOwner(ctx, ownerID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return sess, err
}

// AdvanceStage is the manual +1 step, capped at SellActive.
func (s *Service) AdvanceStage(ctx context.Context, ownerID, sessionID string) (*session.Session, error) {
	var out *session.Session
	var tr session.Transition
	err := retryOnConflict(func() error {
		sess, err := s.owned(ctx, ownerID, sessionID)
		if err != nil {
			return err
		}
		if !sess.Active {
			return session.ErrInactive
		}
		tr = session.Advance(sess)
		if !tr.Changed() {
			out = sess
			return nil
		}
		if err := s.store.Sessions().Update(ctx, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tr.Changed() {
		logger.Infof("session %s advanced manually: %s -> %s", out.ID, tr.From, tr.To)
		s.notify.Notify(ctx, notifier.Event{
			Type:      notifier.EventStageAdvanced,
			OwnerID:   ownerID,
			SessionID: out.ID,
			Symbol:    out.Symbol,
			Stage:     out.Stage.String(),
			Message:   fmt.Sprintf("Stage advanced %s -> %s", tr.From, tr.To),
			Data:      out,
		})
	}
	return out, nil
}

// FinalizeHunt deactivates and removes the session, the owner's active
// strategy and the session's analysis logs.
func (s *Service) FinalizeHunt(ctx context.Context, ownerID, sessionID string) (*session.Session, error) {
	var out *session.Session
	err := retryOnConflict(func() error {
		sess, err := s.owned(ctx, ownerID, sessionID)
		if err != nil {
			return err
		}
		sess.Deactivate(s.now())

		uow, err := s.store.Begin(ctx)
		if err != nil {
			return err
		}
		if err := s.finalizeTx(ctx, uow, sess); err != nil {
			_ = uow.Rollback()
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	purged := int64(0)
	if s.logs != nil {
		if purged, err = s.logs.PurgeSession(ctx, sessionID); err != nil {
			logger.Warnf("session %s: purge analysis logs: %v", sessionID, err)
		}
	}
	logger.Infof("session %s finalized, %d analysis record(s) purged", sessionID, purged)
	s.notify.Notify(ctx, notifier.Event{
		Type:      notifier.EventSessionEnded,
		OwnerID:   ownerID,
		SessionID: sessionID,
		Symbol:    out.Symbol,
		Stage:     out.Stage.String(),
		Message:   "Hunt finalized",
	})
	return out, nil
}

func (s *Service) finalizeTx(ctx context.Context, uow store.UnitOfWork, sess *session.Session) error {
	// The versioned update makes a concurrent cycle's write fail; the delete
	// then removes the row it would reload.
	if err := uow.Sessions().Update(ctx, sess); err != nil {
		return err
	}
	if err := uow.Sessions().Delete(ctx, sess.ID); err != nil {
		return err
	}
	strat, err := uow.Strategies().ActiveByOwner(ctx, sess.OwnerID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	logger.Infof("strategy %s removed with session %s", strat.ID, sess.ID)
	return uow.Strategies().Delete(ctx, strat.ID)
}

// GetAnalysisLogs lists ownerID's records newest first. An empty sessionID
// lists every record the owner can see, market-wide scanner records included.
// Naming another owner's session fails with ErrOwnership.
func (s *Service) GetAnalysisLogs(ctx context.Context, ownerID, sessionID string, limit int) ([]session.AnalysisLog, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", session.ErrInvariant)
	}
	if sessionID != "" {
		// Finalized sessions are deleted; their logs went with them.
		if _, err := s.owned(ctx, ownerID, sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	}
	if s.logs == nil {
		return nil, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultLogLimit
	case limit > MaxLogLimit:
		limit = MaxLogLimit
	}
	return s.logs.ListOwned(ctx, ownerID, sessionID, limit)
}

// CreateStrategy stores a new active strategy. Owners with an active hunt
// or an active strategy are rejected.
func (s *Service) CreateStrategy(ctx context.Context, ownerID string, in session.StrategyInput) (*session.Strategy, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", session.ErrInvariant)
	}
	if _, err := s.store.Sessions().ActiveByOwner(ctx, ownerID); err == nil {
		return nil, fmt.Errorf("%w: finalize the active hunt before creating a strategy", session.ErrInvariant)
	} else if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.Strategies().ActiveByOwner(ctx, ownerID); err == nil {
		return nil, fmt.Errorf("%w: owner already has an active strategy", session.ErrInvariant)
	} else if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	strat := session.NewStrategy(ownerID, in, s.now())
	if err := s.store.Strategies().Create(ctx, strat); err != nil {
		return nil, err
	}
	logger.Infof("strategy %s created for %s: style=%s direction=%s symbols=%v auto=%t",
		strat.ID, ownerID, strat.Style, strat.Direction, strat.Symbols, strat.AutoMode)
	return strat, nil
}

// ActiveStrategy returns nil without error when the owner has none.
func (s *Service) ActiveStrategy(ctx context.Context, ownerID string) (*session.Strategy, error) {
	strat, err := s.store.Strategies().ActiveByOwner(ctx, ownerID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return strat, err
}

func (s *Service) owned(ctx context.Context, ownerID, sessionID string) (*session.Session, error) {
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: session %s", session.ErrOwnership, sessionID)
	}
	return sess, nil
}

func retryOnConflict(fn func() error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		if err = fn(); !errors.Is(err, store.ErrConflict) {
			return err
		}
		logger.Debugf("version conflict, reloading (attempt %d)", i+1)
	}
	return err
}
