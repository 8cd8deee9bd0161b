package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Notify(_ context.Context, evt Event) { r.events = append(r.events, evt) }

func TestMultiStampsAndFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Multi{a, nil, b}.Notify(context.Background(), Event{Type: EventSessionStarted})
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.False(t, a.events[0].Timestamp.IsZero())
}

func TestFormatEvent(t *testing.T) {
	msg := FormatEvent(Event{
		Type:      EventStageAdvanced,
		Symbol:    "BTCUSDT",
		Stage:     "Prepared",
		Message:   "score 64",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}).RenderMarkdown()
	assert.True(t, strings.HasPrefix(msg, "⏫ StageAdvanced"))
	assert.Contains(t, msg, "- Symbol: BTCUSDT")
	assert.Contains(t, msg, "score 64")
	assert.Contains(t, msg, "Time: 2026-01-01 00:00:00 UTC")
}

func TestTelegramRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "chat", body["chat_id"])
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat")
	tg.BaseURL = srv.URL
	tg.Backoff = time.Millisecond
	require.NoError(t, tg.SendText(context.Background(), "hello"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegramRequiresConfig(t *testing.T) {
	assert.Error(t, NewTelegram("", "").SendText(context.Background(), "x"))
}

func TestHubBroadcastsToWebsocketClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", hub.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration is asynchronous; keep publishing until the client sees one.
	got := make(chan Event, 1)
	go func() {
		var evt Event
		if err := conn.ReadJSON(&evt); err == nil {
			got <- evt
		}
	}()
	deadline := time.After(2 * time.Second)
	for {
		hub.Notify(context.Background(), Event{Type: EventSessionEnded, SessionID: "s-1"})
		select {
		case evt := <-got:
			assert.Equal(t, EventSessionEnded, evt.Type)
			assert.Equal(t, "s-1", evt.SessionID)
			return
		case <-deadline:
			t.Fatal("no event received")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestRenderMarkdownCapsLength(t *testing.T) {
	msg := FormatEvent(Event{Type: EventAlert, Symbol: "BTCUSDT", Message: strings.Repeat("é", 5000)})
	out := msg.RenderMarkdown()
	assert.Equal(t, maxStructuredMessageLen+3, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.True(t, utf8.ValidString(out))
}
