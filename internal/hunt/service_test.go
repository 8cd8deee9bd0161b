package hunt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verge/internal/gateway/notifier"
	"verge/internal/session"
	"verge/internal/store/analysislog"
	"verge/internal/store/gormstore"
	"verge/internal/types"
)

type recordingSink struct{ events []notifier.Event }

func (r *recordingSink) Notify(_ context.Context, evt notifier.Event) { r.events = append(r.events, evt) }

func (r *recordingSink) types() []notifier.EventType {
	out := make([]notifier.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	svc   *Service
	store *gormstore.GormStore
	logs  *analysislog.Store
	sink  *recordingSink
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := gormstore.NewGormStore(filepath.Join(dir, "verge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	logs, err := analysislog.New(filepath.Join(dir, "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = logs.Close() })
	sink := &recordingSink{}
	return fixture{svc: NewService(st, logs, sink), store: st, logs: logs, sink: sink}
}

func TestStartSessionReplacesPreviousHunt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.StartSession(ctx, "owner-1", "BTCUSDT", "15")
	require.NoError(t, err)
	assert.Equal(t, types.StageEvaluating, first.Stage)
	assert.True(t, first.Active)
	assert.Equal(t, "15m", first.Timeframe)

	second, err := f.svc.StartSession(ctx, "owner-1", "AUTO", "1h")
	require.NoError(t, err)

	cur, err := f.svc.GetCurrentSession(ctx, "owner-1")
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, second.ID, cur.ID)

	old, err := f.store.Sessions().Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.Active)
	assert.Equal(t, []notifier.EventType{notifier.EventSessionStarted, notifier.EventSessionStarted}, f.sink.types())
}

func TestStartSessionValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartSession(context.Background(), "owner-1", "???", "15m")
	assert.ErrorIs(t, err, session.ErrInvariant)
	_, err = f.svc.StartSession(context.Background(), "", "BTCUSDT", "15m")
	assert.ErrorIs(t, err, session.ErrInvariant)
}

func TestGetCurrentSessionWhenIdle(t *testing.T) {
	f := newFixture(t)
	cur, err := f.svc.GetCurrentSession(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestAdvanceStageIsCappedAndOwned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess, err := f.svc.StartSession(ctx, "owner-1", "BTCUSDT", "15m")
	require.NoError(t, err)

	_, err = f.svc.AdvanceStage(ctx, "intruder", sess.ID)
	assert.ErrorIs(t, err, session.ErrOwnership)

	var got *session.Session
	for i := 0; i < 5; i++ {
		got, err = f.svc.AdvanceStage(ctx, "owner-1", sess.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, types.StageSellActive, got.Stage)
	assert.Len(t, f.sink.events, 1+3)
}

func TestFinalizeHuntPurgesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.CreateStrategy(ctx, "owner-1", session.StrategyInput{Name: "s", AutoMode: true})
	require.NoError(t, err)
	sess, err := f.svc.StartSession(ctx, "owner-1", "BTCUSDT", "15m")
	require.NoError(t, err)
	_, err = f.logs.Append(ctx, session.AnalysisLog{OwnerID: "owner-1", SessionID: sess.ID, Symbol: "BTCUSDT", Message: "cycle"})
	require.NoError(t, err)
	_, err = f.logs.Append(ctx, session.AnalysisLog{Symbol: "ETHUSDT", Type: session.LogScanner, Message: "scan"})
	require.NoError(t, err)

	_, err = f.svc.FinalizeHunt(ctx, "intruder", sess.ID)
	assert.ErrorIs(t, err, session.ErrOwnership)

	out, err := f.svc.FinalizeHunt(ctx, "owner-1", sess.ID)
	require.NoError(t, err)
	assert.False(t, out.Active)
	assert.NotNil(t, out.EndedAt)

	cur, err := f.svc.GetCurrentSession(ctx, "owner-1")
	require.NoError(t, err)
	assert.Nil(t, cur)
	strat, err := f.svc.ActiveStrategy(ctx, "owner-1")
	require.NoError(t, err)
	assert.Nil(t, strat)

	logs, err := f.svc.GetAnalysisLogs(ctx, "owner-1", sess.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
	all, err := f.svc.GetAnalysisLogs(ctx, "owner-1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.FinalizeHunt(ctx, "owner-1", sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, notifier.EventSessionEnded, f.sink.events[len(f.sink.events)-1].Type)
}

func TestCreateStrategyInvariants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateStrategy(ctx, "owner-1", session.StrategyInput{Name: "a"})
	require.NoError(t, err)
	_, err = f.svc.CreateStrategy(ctx, "owner-1", session.StrategyInput{Name: "b"})
	assert.ErrorIs(t, err, session.ErrInvariant)

	_, err = f.svc.StartSession(ctx, "owner-2", "ETHUSDT", "1h")
	require.NoError(t, err)
	_, err = f.svc.CreateStrategy(ctx, "owner-2", session.StrategyInput{Name: "c"})
	assert.ErrorIs(t, err, session.ErrInvariant)
}

func TestStartIfIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, created, err := f.svc.StartIfIdle(ctx, "owner-1", "SOLUSDT", "15m")
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "SOLUSDT", sess.Symbol)

	_, created, err = f.svc.StartIfIdle(ctx, "owner-1", "BTCUSDT", "15m")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAnalysisLogsAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, err := f.svc.StartSession(ctx, "alice", "BTCUSDT", "15m")
	require.NoError(t, err)
	bob, err := f.svc.StartSession(ctx, "bob", "ETHUSDT", "15m")
	require.NoError(t, err)
	for _, rec := range []session.AnalysisLog{
		{OwnerID: "alice", SessionID: alice.ID, Symbol: "BTCUSDT", Message: "alice cycle"},
		{OwnerID: "bob", SessionID: bob.ID, Symbol: "ETHUSDT", Message: "bob cycle"},
		{Symbol: "SOLUSDT", Type: session.LogScanner, Message: "scan"},
	} {
		_, err := f.logs.Append(ctx, rec)
		require.NoError(t, err)
	}

	_, err = f.svc.GetAnalysisLogs(ctx, "alice", bob.ID, 0)
	assert.ErrorIs(t, err, session.ErrOwnership)
	_, err = f.svc.GetAnalysisLogs(ctx, "", "", 0)
	assert.ErrorIs(t, err, session.ErrInvariant)

	own, err := f.svc.GetAnalysisLogs(ctx, "alice", alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "alice cycle", own[0].Message)

	all, err := f.svc.GetAnalysisLogs(ctx, "alice", "", 0)
	require.NoError(t, err)
	msgs := make([]string, len(all))
	for i, r := range all {
		msgs[i] = r.Message
	}
	assert.ElementsMatch(t, []string{"alice cycle", "scan"}, msgs)
}
