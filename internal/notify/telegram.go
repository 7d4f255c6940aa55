package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yanun0323/errors"
)

const telegramAPIURL = "https://api.telegram.org/bot%s/sendMessage"

// Telegram delivers notifications through the Bot API over plain HTTP.
type Telegram struct {
	botToken   string
	chatID     int64
	apiBase    string
	httpClient *http.Client
}

// NewTelegram creates a client for the configured chat.
func NewTelegram(botToken string, chatID int64) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Notify implements Notifier.
func (t *Telegram) Notify(ctx context.Context, title, message string) error {
	url := fmt.Sprintf(t.apiBase, t.botToken)

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      fmt.Sprintf("<b>%s</b>\n%s", title, message),
		ParseMode: "HTML",
	})
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return errors.Wrap(err, "unmarshal response")
	}
	if !parsed.OK {
		return errors.Errorf("telegram api error: %s", parsed.Description)
	}
	return nil
}
