package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ChannelBanner/internal/ports"
)

// DefaultEndpoint is the public Bot API base URL.
const DefaultEndpoint = "https://api.telegram.org"

// Notifier sends publication notices to a Telegram chat via bot API.
type Notifier struct {
	endpoint string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. A nil client gets a 5s timeout.
func NewNotifier(endpoint, botToken, chatID string, client *http.Client) *Notifier {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Notifier{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   client,
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify posts a plain-text message to the configured chat.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.endpoint, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", message)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		// The request URL embeds the bot token.
		return fmt.Errorf("telegram request failed: %w", redact(err, n.botToken))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed apiResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		if parsed.Description != "" {
			return fmt.Errorf("telegram error: %s: %s", resp.Status, parsed.Description)
		}
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e redactedError) Error() string { return e.msg }
func (e redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
