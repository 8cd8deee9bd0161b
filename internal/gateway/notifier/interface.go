package notifier

import (
	"context"
	"time"
)

// TextNotifier defines a minimal text notification interface.
// It is intentionally small so different components can depend on it without
// importing concrete implementations (e.g. Telegram).
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

type EventType string

const (
	EventSessionStarted EventType = "SessionStarted"
	EventStageAdvanced  EventType = "StageAdvanced"
	EventSessionEnded   EventType = "SessionEnded"
	EventAlert          EventType = "Alert"
)

// Event is a session lifecycle or alert notification.
type Event struct {
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Level     string    `json:"level,omitempty"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives events. Delivery is best effort; Notify never blocks the
// caller on a slow consumer and never fails it.
type Sink interface {
	Notify(ctx context.Context, evt Event)
}

// Multi fans an event out to every sink.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, evt)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
