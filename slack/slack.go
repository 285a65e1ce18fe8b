// Package slack posts messages to a Slack incoming webhook. The expiry
// digest uses it as its Notifier.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"pantrybot"
)

const defaultUsername = "pantrybot"

var ErrNoWebhook = errors.New("slack webhook url is not configured")

type message struct {
	Channel   string `json:"channel,omitempty"`
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
	Mrkdwn    bool   `json:"mrkdwn"`
}

type Client struct {
	webhookURL string
	httpClient pantrybot.HTTPClient
}

var _ pantrybot.Notifier = (*Client)(nil)

func NewClient(webhookURL string, httpClient pantrybot.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

// PostMessage sends message, formatted as Slack mrkdwn, to channel. An
// empty channel posts to the webhook's default channel.
func (c *Client) PostMessage(ctx context.Context, channel string, text string) error {
	if strings.TrimSpace(c.webhookURL) == "" {
		return ErrNoWebhook
	}

	payload, err := json.Marshal(message{
		Channel:   channel,
		Text:      text,
		Username:  defaultUsername,
		IconEmoji: ":shopping_trolley:",
		Mrkdwn:    true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("SLACK: Webhook rejected message", "status", resp.Status, "body", string(body))
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	slog.Info("SLACK: Posted message", "channel", channel, "text_len", len(text))
	return nil
}
