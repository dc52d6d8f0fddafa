package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback actions
const (
	ActionJoin    = "join"
	ActionStart   = "start"
	ActionRestart = "restart"
	ActionStatus  = "status"
)

func callbackData(action, code string) string {
	return action + ":" + code
}

// parseCallback splits "action:CODE" callback data.
func parseCallback(data string) (action, code string, ok bool) {
	action, code, ok = strings.Cut(data, ":")
	if !ok || action == "" || code == "" {
		return "", "", false
	}
	return action, code, true
}

// LobbyKeyboard is attached to room announcements while players join
func LobbyKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🙋 Join", callbackData(ActionJoin, code)),
			tgbotapi.NewInlineKeyboardButtonData("🚀 Start", callbackData(ActionStart, code)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Status", callbackData(ActionStatus, code)),
		),
	)
}

// GameKeyboard is attached to announcements of a running game
func GameKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 New round", callbackData(ActionRestart, code)),
			tgbotapi.NewInlineKeyboardButtonData("📋 Status", callbackData(ActionStatus, code)),
		),
	)
}
