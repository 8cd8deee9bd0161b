package notifier

import (
	"strings"
	"time"

	"verge/internal/pkg/text"
)

const maxStructuredMessageLen = 3800

// MessageSection is one titled block of a notification.
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage is the common layout of Telegram pushes.
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown renders the message as Markdown, truncated to the Telegram limit.
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	header := strings.TrimSpace(m.Icon + " " + m.Title)
	if header != "" {
		b.WriteString(header + "\n\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("Time: " + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	return text.Truncate(strings.TrimSpace(b.String()), maxStructuredMessageLen)
}

func renderSections(secs []MessageSection) string {
	hasContent := false
	for _, sec := range secs {
		if len(sanitizeLines(sec.Lines)) > 0 {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return ""
	}
	var b strings.Builder
	b.WriteString("```\n")
	for idx, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(sanitize(title))
			b.WriteString("\n")
		}
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(sanitize(line))
			b.WriteString("\n")
		}
		if idx != len(secs)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("```\n\n")
	return b.String()
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

var eventIcons = map[EventType]string{
	EventSessionStarted: "🎯",
	EventStageAdvanced:  "⏫",
	EventSessionEnded:   "🏁",
	EventAlert:          "🔔",
}

// FormatEvent lays an event out for chat delivery.
func FormatEvent(evt Event) StructuredMessage {
	lines := []string{}
	if evt.Symbol != "" {
		lines = append(lines, "Symbol: "+evt.Symbol)
	}
	if evt.Stage != "" {
		lines = append(lines, "Stage: "+evt.Stage)
	}
	if evt.SessionID != "" {
		lines = append(lines, "Session: "+evt.SessionID)
	}
	return StructuredMessage{
		Icon:      eventIcons[evt.Type],
		Title:     string(evt.Type),
		Sections:  []MessageSection{{Lines: lines}},
		Footer:    evt.Message,
		Timestamp: evt.Timestamp,
	}
}
