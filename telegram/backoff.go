package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

// Backoff is a bounded exponential retry policy.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultBackoff is used to reach the Telegram API at startup.
var DefaultBackoff = Backoff{Attempts: 5, Base: 5 * time.Second, Max: 60 * time.Second}

// Delay returns the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	if d > b.Max {
		return b.Max
	}
	return d
}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == b.Attempts {
			break
		}

		delay := b.Delay(attempt)
		logger.Warn("Attempt failed, retrying", "attempt", attempt, "retry_in", delay.String(), "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", b.Attempts, err)
}

// Connect authorizes against the Telegram API, retrying transient failures.
func Connect(ctx context.Context, token string, debug bool) (*tgbotapi.BotAPI, error) {
	var api *tgbotapi.BotAPI
	err := DefaultBackoff.Retry(ctx, func() error {
		var err error
		api, err = tgbotapi.NewBotAPI(token)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	api.Debug = debug
	logger.Info("Authorized on account", "username", api.Self.UserName)
	return api, nil
}
