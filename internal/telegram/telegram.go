package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/policydigest/internal/retry"
)

const (
	DefaultAPIURL = "https://api.telegram.org"
	// MaxMessageRunes stays under Telegram's 4096 character limit.
	MaxMessageRunes = 4000
)

type Client struct {
	token  string
	chatID string
	apiURL string
	http   *http.Client
	retry  retry.RetryConfig
	logger *slog.Logger
}

func NewClient(token, chatID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		token:  token,
		chatID: chatID,
		apiURL: DefaultAPIURL,
		http:   &http.Client{Timeout: 30 * time.Second},
		retry: retry.RetryConfig{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
			Backoff:     true,
		},
		logger: logger.With("component", "telegram"),
	}
}

func (c *Client) Name() string { return "telegram" }

// Deliver sends subject and body as one or more plain-text messages.
func (c *Client) Deliver(ctx context.Context, subject, body string) error {
	text := strings.TrimSpace(subject + "\n\n" + body)
	chunks := SplitMessage(text, MaxMessageRunes)
	for i, chunk := range chunks {
		if err := c.SendMessage(ctx, chunk); err != nil {
			return fmt.Errorf("send part %d/%d: %w", i+1, len(chunks), err)
		}
	}
	c.logger.Info("digest sent to Telegram", "parts", len(chunks))
	return nil
}

// SendMessage sends text message to Telegram chat/channel with retry logic
func (c *Client) SendMessage(ctx context.Context, text string) error {
	attempt := 0
	return retry.WithRetry(ctx, c.retry, func() error {
		attempt++
		err := c.sendMessageOnce(ctx, text)
		if err != nil {
			c.logger.Warn("error sending to Telegram", "attempt", attempt, "max", c.retry.MaxAttempts, "error", err)
		}
		return err
	})
}

// sendMessageOnce does one try to send message
func (c *Client) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.token)

	payload := map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// SplitMessage cuts text into chunks of at most limit runes, breaking on
// line boundaries where possible.
func SplitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		for len(r) > limit {
			flush()
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		if curLen+len(r) > limit {
			flush()
		}
		cur.WriteString(string(r))
		curLen += len(r)
	}
	flush()
	return chunks
}
