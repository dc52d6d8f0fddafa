package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

// Dispatcher privately delivers each newly dealt secret to its Telegram
// player. Web players are skipped; they read their secret over HTTP.
type Dispatcher struct {
	api    Sender
	game   Game
	events <-chan events.Event
	opts   Options
}

func NewDispatcher(api Sender, svc Game, ch <-chan events.Event, opts Options) *Dispatcher {
	return &Dispatcher{api: api, game: svc, events: ch, opts: opts}
}

// Run consumes secret.added events until ctx is done or the channel closes.
func (d *Dispatcher) Run(ctx context.Context) {
	logger.Info("Notification dispatcher started")
	defer logger.Info("Notification dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			if ev.Type == events.TypeSecretAdded {
				d.deliver(ctx, ev)
			}
		}
	}
}

// deliver never returns an error: failures are logged and the player can
// still ask for the secret with /reveal.
func (d *Dispatcher) deliver(ctx context.Context, ev events.Event) {
	log := logger.With("code", ev.RoomCode, "user", ev.UserID)

	secret, found, err := d.game.GetPlayerSecret(ctx, ev.RoomCode, ev.UserID)
	if err != nil {
		log.Errorw("Failed to load secret", "error", err)
		return
	}
	if !found {
		// Replaced by a newer round before we got to it
		log.Debugw("Secret gone before delivery")
		return
	}

	telegramPlayer, err := d.isTelegramPlayer(ctx, ev.RoomCode, ev.UserID)
	if err != nil {
		log.Errorw("Failed to load room", "error", err)
		return
	}
	if !telegramPlayer || secret.OriginID == nil {
		return
	}

	chatID, err := strconv.ParseInt(*secret.OriginID, 10, 64)
	if err != nil {
		log.Warnw("Invalid origin id", "origin_id", *secret.OriginID)
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatSecret(ev.RoomCode, secret, revealLink(d.opts, ev.RoomCode, ev.UserID)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if err := send(d.api, msg); err != nil {
		log.Warnw("Failed to deliver secret", "error", err)
		return
	}

	if err := d.game.MarkPlayerSeen(ctx, ev.RoomCode, ev.UserID); err != nil {
		log.Warnw("Failed to mark secret seen", "error", err)
	}
	log.Debugw("Secret delivered")
}

func (d *Dispatcher) isTelegramPlayer(ctx context.Context, code, userID string) (bool, error) {
	view, found, err := d.game.GetRoomStatus(ctx, code)
	if err != nil || !found {
		return false, err
	}
	for _, p := range view.Players {
		if p.UserID == userID {
			return p.Source == models.SourceTelegram, nil
		}
	}
	return false, nil
}
