package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"verge/internal/decision"
	"verge/internal/gateway/notifier"
	"verge/internal/logger"
	"verge/internal/pkg/symbol"
	"verge/internal/session"
	"verge/internal/store"
	"verge/internal/types"
)

const maxUpdateAttempts = 3

// errSkip marks a session the cycle must leave alone: it ended, moved on or
// vanished while the cycle was running.
var errSkip = errors.New("monitor: session skipped")

func searchRequest(s *session.Session, st *session.Strategy) decision.SearchRequest {
	return decision.SearchRequest{
		SessionID:         s.ID,
		Stage:             s.Stage,
		Symbol:            s.Symbol,
		Timeframe:         s.Timeframe,
		Universe:          st.Symbols,
		Style:             st.Style,
		Direction:         st.Direction,
		Confirmations:     s.Confirmations,
		SelectedSymbol:    s.SelectedSymbol,
		SelectedStyle:     s.SelectedStyle,
		SelectedDirection: s.SelectedDirection,
	}
}

func requiredKeys(j job) []decision.ContextKey {
	if j.sess.Stage == types.StageBuyActive {
		sym := j.sess.TradedSymbol()
		if sym == "" {
			return nil
		}
		return []decision.ContextKey{{Symbol: sym, Timeframe: symbol.Interval(j.sess.Timeframe)}}
	}
	return searchRequest(j.sess, j.strat).RequiredKeys()
}

// mutate reloads the session, applies fn and writes it back, retrying on
// version conflicts. fn returns false to abandon the write.
func (m *Monitor) mutate(ctx context.Context, id string, fn func(*session.Session) bool) (*session.Session, error) {
	repo := m.store.Sessions()
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		sess, err := repo.Get(ctx, id)
		if errors.Is(err, session.ErrNotFound) {
			return nil, errSkip
		}
		if err != nil {
			return nil, err
		}
		if !sess.Active || sess.Stage.Terminal() {
			return nil, errSkip
		}
		if !fn(sess) {
			return nil, errSkip
		}
		err = repo.Update(ctx, sess)
		switch {
		case err == nil:
			return sess, nil
		case errors.Is(err, store.ErrConflict):
			continue
		case errors.Is(err, session.ErrNotFound):
			return nil, errSkip
		default:
			return nil, err
		}
	}
	return nil, store.ErrConflict
}

func (m *Monitor) evaluate(ctx context.Context, j job, contexts decision.ContextMap) error {
	if j.sess.Stage == types.StageBuyActive {
		return m.checkExit(ctx, j, contexts)
	}
	req := searchRequest(j.sess, j.strat)
	best := m.auto.FindBestOpportunity(req, contexts)
	if best == nil {
		logger.Debugf("monitor: session %s: no market context yet", j.sess.ID)
		return nil
	}
	if j.sess.IsAuto() {
		m.logRanking(ctx, j, m.auto.FindTopOpportunities(req, contexts, m.cfg.RankingSize))
	}
	lastClose, ok := best.Context.LastClose()
	if !ok {
		return nil
	}
	price := m.livePrice(ctx, best.Symbol, lastClose)
	res := best.Result

	var tr session.Transition
	sess, err := m.mutate(ctx, j.sess.ID, func(s *session.Session) bool {
		if s.Stage != j.sess.Stage {
			return false
		}
		if res.Decision >= decision.Prepare {
			s.SelectedSymbol = best.Symbol
			s.SelectedStyle = best.Style
			s.SelectedDirection = best.Direction
		}
		tr = session.ApplyDecision(s, j.strat, res, price, m.now())
		return true
	})
	if err != nil {
		return err
	}
	m.report(ctx, j.strat, sess, best, tr)
	return nil
}

// livePrice quotes the latest trade for sym. Scoring stays on closed candles,
// but entries and exits are priced where the market is now. fallback is used
// when no quote is available.
func (m *Monitor) livePrice(ctx context.Context, sym string, fallback float64) decimal.Decimal {
	if m.prices == nil {
		return decimal.NewFromFloat(fallback)
	}
	qctx, cancel := context.WithTimeout(ctx, priceTimeout)
	defer cancel()
	last, err := m.prices.LastPrice(qctx, sym)
	if err != nil || last <= 0 {
		logger.Warnf("monitor: live price %s unavailable, using last close: %v", sym, err)
		return decimal.NewFromFloat(fallback)
	}
	return decimal.NewFromFloat(last)
}

func (m *Monitor) checkExit(ctx context.Context, j job, contexts decision.ContextMap) error {
	mc := contexts.Get(j.sess.TradedSymbol(), symbol.Interval(j.sess.Timeframe))
	lastClose, ok := mc.LastClose()
	if !ok {
		return nil
	}
	price := m.livePrice(ctx, j.sess.TradedSymbol(), lastClose)
	var tr session.Transition
	sess, err := m.mutate(ctx, j.sess.ID, func(s *session.Session) bool {
		if s.Stage != types.StageBuyActive {
			return false
		}
		tr = session.CheckExit(s, price, m.now())
		return true
	})
	if err != nil {
		return err
	}
	if tr.Exit == "" {
		return nil
	}
	level := session.LevelSuccess
	if tr.Exit == session.ExitStopLoss {
		level = session.LevelDanger
	}
	msg := fmt.Sprintf("[%s] %s hit at %s (entry %s)",
		sess.TradedSymbol(), tr.Exit, price.StringFixed(4), sess.EntryPrice.Decimal.StringFixed(4))
	m.appendLog(ctx, sess, session.LogAlertExit, level, msg, map[string]any{
		"exit":        tr.Exit,
		"price":       price,
		"entry_price": sess.EntryPrice,
		"take_profit": sess.TakeProfit,
		"stop_loss":   sess.StopLoss,
	})
	m.notifyTransition(ctx, j.strat, sess, tr, level, msg)
	return nil
}

func (m *Monitor) report(ctx context.Context, st *session.Strategy, sess *session.Session, op *decision.Opportunity, tr session.Transition) {
	res := op.Result
	typ, level := session.LogStandard, session.LevelInfo
	switch {
	case tr.Invalidated:
		typ, level = session.LogAlertInvalidated, session.LevelDanger
	case tr.Entered:
		typ, level = session.LogAlertEntry, session.LevelSuccess
	case res.Decision == decision.Prepare:
		typ, level = session.LogAlertPrepare, session.LevelWarning
	case res.Decision == decision.Context:
		typ, level = session.LogAlertContext, session.LevelInfo
	}
	msg := fmt.Sprintf("[%s] %s %s score %d -> %s: %s",
		op.Symbol, op.Style, op.Direction, res.Score, res.Decision, res.Reason)
	if tr.Entered {
		msg += fmt.Sprintf(" | entry %s tp %s sl %s",
			sess.EntryPrice.Decimal.StringFixed(4), sess.TakeProfit.Decimal.StringFixed(4), sess.StopLoss.Decimal.StringFixed(4))
	}
	m.appendLog(ctx, sess, typ, level, msg, op)
	m.notifyTransition(ctx, st, sess, tr, level, msg)
}

func (m *Monitor) logRanking(ctx context.Context, j job, top []decision.Opportunity) {
	if len(top) == 0 {
		return
	}
	parts := make([]string, 0, len(top))
	for i, op := range top {
		parts = append(parts, fmt.Sprintf("#%d %s %s %s %d", i+1, op.Symbol, op.Style, op.Direction, op.Result.Score))
	}
	m.appendLog(ctx, j.sess, session.LogOpportunityRanking, session.LevelInfo,
		"Top opportunities: "+strings.Join(parts, ", "), top)
}

func (m *Monitor) appendLog(ctx context.Context, sess *session.Session, typ session.LogType, level session.Level, msg string, payload any) {
	if m.logs == nil {
		return
	}
	sym := sess.TradedSymbol()
	if sym == "" {
		sym = sess.Symbol
	}
	rec := session.AnalysisLog{
		OwnerID:   sess.OwnerID,
		SessionID: sess.ID,
		Symbol:    sym,
		Type:      typ,
		Message:   msg,
		Level:     level,
		Timestamp: m.now().UTC(),
	}.WithPayload(payload)
	if _, err := m.logs.Append(ctx, rec); err != nil {
		logger.Warnf("monitor: append log for %s: %v", sess.ID, err)
		return
	}
	// A finalize that committed after this cycle's write may have purged
	// before the append landed. Its purge runs after its commit, so a session
	// still present here will be swept by it.
	if _, err := m.store.Sessions().Get(ctx, sess.ID); errors.Is(err, session.ErrNotFound) {
		if n, err := m.logs.PurgeSession(ctx, sess.ID); err != nil {
			logger.Warnf("monitor: purge logs of finalized session %s: %v", sess.ID, err)
		} else if n > 0 {
			logger.Debugf("monitor: swept %d log(s) of finalized session %s", n, sess.ID)
		}
	}
}

func (m *Monitor) notifyTransition(ctx context.Context, st *session.Strategy, sess *session.Session, tr session.Transition, level session.Level, msg string) {
	if tr.Changed() {
		m.notify.Notify(ctx, notifier.Event{
			Type:      notifier.EventStageAdvanced,
			OwnerID:   sess.OwnerID,
			SessionID: sess.ID,
			Symbol:    sess.TradedSymbol(),
			Stage:     sess.Stage.String(),
			Level:     string(level),
			Message:   fmt.Sprintf("Stage %s -> %s", tr.From, tr.To),
			Timestamp: m.now().UTC(),
		})
	}
	if !tr.Entered && tr.Exit == "" && !tr.Invalidated {
		return
	}
	if st != nil && !st.Notifications {
		return
	}
	m.notify.Notify(ctx, notifier.Event{
		Type:      notifier.EventAlert,
		OwnerID:   sess.OwnerID,
		SessionID: sess.ID,
		Symbol:    sess.TradedSymbol(),
		Stage:     sess.Stage.String(),
		Level:     string(level),
		Message:   msg,
		Data:      sess,
		Timestamp: m.now().UTC(),
	})
}
