package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
)

const telegramAPI = "https://api.telegram.org"

// Telegram sends through the Bot API with HTML parse mode.
type Telegram struct {
	Token        string
	ErrorChatIDs []string
	InfoChatIDs  []string
	BaseURL      string
	Client       *http.Client
}

func NewTelegram(token string, errorChats, infoChats []string) *Telegram {
	return &Telegram{
		Token:        token,
		ErrorChatIDs: errorChats,
		InfoChatIDs:  infoChats,
		BaseURL:      telegramAPI,
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) chats(audience Audience) []string {
	if audience == AudienceInfo {
		return t.InfoChatIDs
	}
	return t.ErrorChatIDs
}

func (t *Telegram) Send(ctx context.Context, audience Audience, text string) error {
	var errs error
	for _, chat := range t.chats(audience) {
		if err := t.sendOne(ctx, chat, text); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("telegram chat %s: %w", chat, err))
		}
	}
	return errs
}

func (t *Telegram) sendOne(ctx context.Context, chat, text string) error {
	body, _ := json.Marshal(telegramMessage{ChatID: chat, Text: text, ParseMode: "HTML"})
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode/100 != 2 || !out.OK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, out.Description)
	}
	return nil
}
