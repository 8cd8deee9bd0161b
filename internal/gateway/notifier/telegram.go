package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"verge/internal/logger"
)

const telegramAPI = "https://api.telegram.org"

// Telegram pushes session events to a chat.
type Telegram struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client
	// Backoff is the base retry delay; attempt n waits n*Backoff.
	Backoff time.Duration
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  telegramAPI,
		Client:   &http.Client{Timeout: 15 * time.Second},
		Backoff:  time.Second,
	}
}

// SendText sends a Markdown message with up to 3 attempts.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram: bot token and chat id are required")
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.BotToken)
	body, _ := json.Marshal(map[string]any{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})

	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * t.Backoff):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}

// Notify sends the event in the background so callers never wait on the
// Telegram API.
func (t *Telegram) Notify(_ context.Context, evt Event) {
	text := FormatEvent(evt).RenderMarkdown()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := t.SendText(ctx, text); err != nil {
			logger.Warnf("telegram notify %s failed: %v", evt.Type, err)
		}
	}()
}
