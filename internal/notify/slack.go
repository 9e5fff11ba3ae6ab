package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Slack posts to incoming webhooks. InfoWebhook falls back to ErrorWebhook.
type Slack struct {
	ErrorWebhook string
	InfoWebhook  string
	Client       *http.Client
}

func NewSlack(errorWebhook, infoWebhook string) *Slack {
	if errorWebhook == "" && infoWebhook == "" {
		return nil
	}
	return &Slack{
		ErrorWebhook: errorWebhook,
		InfoWebhook:  infoWebhook,
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

// html tags used by the rendered messages, mapped to Slack mrkdwn.
var slackMarkup = strings.NewReplacer(
	"<b>", "*", "</b>", "*",
	"<u>", "_", "</u>", "_",
	"<pre>", "```", "</pre>", "```",
	"<br/>", "\n",
)

func (s *Slack) webhook(audience Audience) string {
	if audience == AudienceInfo && s.InfoWebhook != "" {
		return s.InfoWebhook
	}
	return s.ErrorWebhook
}

func (s *Slack) Send(ctx context.Context, audience Audience, text string) error {
	if s == nil {
		return errors.New("slack disabled")
	}
	hook := s.webhook(audience)
	if hook == "" {
		return errors.New("slack: no webhook for " + string(audience))
	}
	body, _ := json.Marshal(slackPayload{Text: slackMarkup.Replace(text)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("slack non-2xx: %d", resp.StatusCode)
	}
	return nil
}
