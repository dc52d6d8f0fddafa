package telegram

import (
	"context"
	"strconv"

	"github.com/mroshb/impostor_bot/internal/game"
	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/internal/security"
	"github.com/mroshb/impostor_bot/pkg/errors"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

func (b *Bot) createRoom(ctx context.Context, c caller) {
	originID := strconv.FormatInt(c.privateID, 10)
	channelRef := strconv.FormatInt(c.chatID, 10)

	code, err := b.game.CreateRoom(ctx, game.CreatePlayer{
		UserID:     c.userID,
		Name:       c.name,
		Source:     models.SourceTelegram,
		OriginID:   &originID,
		ChannelRef: &channelRef,
	})
	if err != nil {
		b.replyError(c.chatID, err)
		return
	}

	b.rememberRoom(ctx, c, code)
	b.sendMessage(c.chatID, FormatRoomCreated(code), LobbyKeyboard(code))
}

func (b *Bot) joinRoom(ctx context.Context, c caller, code string) {
	originID := strconv.FormatInt(c.privateID, 10)

	err := b.game.JoinRoom(ctx, code, game.JoinPlayer{
		UserID:   c.userID,
		Name:     c.name,
		Source:   models.SourceTelegram,
		OriginID: &originID,
	})
	if err != nil {
		b.replyError(c.chatID, err)
		return
	}

	b.rememberRoom(ctx, c, code)
	b.sendMessage(c.chatID, FormatJoined(c.name, code), LobbyKeyboard(code))
}

func (b *Bot) startGame(ctx context.Context, c caller, code string) {
	secrets, err := b.game.StartGame(ctx, code, c.userID)
	if err != nil {
		b.replyError(c.chatID, err)
		return
	}
	b.sendMessage(c.chatID, FormatStarted(code, secrets), GameKeyboard(code))
}

func (b *Bot) restartGame(ctx context.Context, c caller, code string) {
	if err := b.game.RestartGame(ctx, code, c.userID); err != nil {
		b.replyError(c.chatID, err)
		return
	}
	b.sendMessage(c.chatID, FormatRestarted(code), GameKeyboard(code))
}

func (b *Bot) showStatus(ctx context.Context, c caller, code string) {
	view, found, err := b.game.GetRoomStatus(ctx, code)
	if err != nil {
		b.replyError(c.chatID, err)
		return
	}
	if !found {
		b.replyError(c.chatID, errors.New(errors.ErrCodeRoomNotFound, "Room "+code+" does not exist"))
		return
	}

	keyboard := LobbyKeyboard(code)
	if view.Status != models.RoomStatusLobby {
		keyboard = GameKeyboard(code)
	}
	b.sendMessage(c.chatID, FormatStatus(view), keyboard)
}

// revealSecret sends the caller's secret to their private chat.
func (b *Bot) revealSecret(ctx context.Context, c caller, code string) {
	secret, found, err := b.game.GetPlayerSecret(ctx, code, c.userID)
	if err != nil {
		b.replyError(c.chatID, err)
		return
	}
	if !found {
		b.sendMessage(c.chatID, MsgNoSecretYet, nil)
		return
	}

	text := FormatSecret(code, secret, revealLink(b.opts, code, c.userID))
	if err := b.sendMessage(c.privateID, text, nil); err != nil {
		b.sendMessage(c.chatID, MsgPrivateFailed, nil)
		return
	}
	if err := b.game.MarkPlayerSeen(ctx, code, c.userID); err != nil {
		logger.Warn("Failed to mark secret seen", "code", code, "user", c.userID, "error", err)
	}
	if c.chatID != c.privateID {
		b.sendMessage(c.chatID, MsgSecretSent, nil)
	}
}

// resolveCode returns the explicit code argument or the caller's current
// room. When neither exists the caller is asked for a code.
func (b *Bot) resolveCode(ctx context.Context, c caller, arg string) (string, bool) {
	if arg != "" {
		return game.NormalizeCode(arg), true
	}

	code, found, err := b.game.CurrentRoom(ctx, c.userID)
	if err != nil {
		b.replyError(c.chatID, err)
		return "", false
	}
	if !found {
		b.sendMessage(c.chatID, MsgNeedCode, nil)
		return "", false
	}
	return code, true
}

func (b *Bot) rememberRoom(ctx context.Context, c caller, code string) {
	if err := b.game.RememberRoom(ctx, c.userID, code); err != nil {
		logger.Warn("Failed to remember room", "user", c.userID, "code", code, "error", err)
	}
}

// replyError shows domain errors verbatim and hides infrastructure failures.
func (b *Bot) replyError(chatID int64, err error) {
	if errors.IsDomain(err) {
		b.sendMessage(chatID, "❌ "+errors.MessageOf(err), nil)
		return
	}
	logger.Error("Command failed", "chat_id", chatID, "error", err)
	b.sendMessage(chatID, MsgGenericError, nil)
}

// revealLink signs a web reveal link, or returns "" when links are disabled.
func revealLink(opts Options, code, userID string) string {
	if opts.WebBaseURL == "" || opts.RevealSecret == "" {
		return ""
	}
	token, err := security.GenerateRevealToken(code, userID, opts.RevealSecret, opts.RevealTTL)
	if err != nil {
		logger.Warn("Failed to sign reveal link", "code", code, "user", userID, "error", err)
		return ""
	}
	return RevealURL(opts.WebBaseURL, token)
}
