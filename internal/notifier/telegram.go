package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultAPIURL is the Telegram Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	client   *resty.Client

	// RetryInterval is the first wait of SendWithRetry; it doubles per attempt.
	RetryInterval time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	return NewTelegramNotifierWithURL(DefaultAPIURL, botToken, chatID, proxyURL)
}

// NewTelegramNotifierWithURL targets a different Bot API host.
func NewTelegramNotifierWithURL(apiURL, botToken, chatID, proxyURL string) *TelegramNotifier {
	client := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(40 * time.Second)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &TelegramNotifier{
		BotToken:      botToken,
		ChatID:        chatID,
		client:        client,
		RetryInterval: time.Second,
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	var out apiResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    t.ChatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		SetResult(&out).
		SetError(&out).
		Post("/bot" + t.BotToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram API error: status %d, description: %s", resp.StatusCode(), out.Description)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.RetryInterval
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return t.Send(ctx, text)
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Int("max", maxRetries+1).Dur("retry_in", wait).Msg("telegram send failed")
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("all %d attempts exhausted: %w", attempt, err)
	}
	return nil
}
