package telegram

import (
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"

	"github.com/mroshb/impostor_bot/internal/game"
	"github.com/mroshb/impostor_bot/internal/models"
)

const (
	MsgHelp = "🕵️ <b>Impostor</b>\n\n" +
		"Everyone gets the same secret word except one player, the impostor. " +
		"Take turns describing the word and find out who is bluffing.\n\n" +
		"/create - open a new room\n" +
		"/join CODE - join a room\n" +
		"/start [CODE] - deal roles (host only)\n" +
		"/restart [CODE] - deal a new round (host only)\n" +
		"/status [CODE] - show the room\n" +
		"/reveal [CODE] - send me my secret again\n" +
		"/help - show this message\n\n" +
		"The code may be left out once you are in a room."

	MsgNeedCode      = "❌ Please give a room code, for example <code>/join ABC234</code>."
	MsgGenericError  = "❌ Something went wrong. Please try again later."
	MsgNoSecretYet   = "⏳ You have no secret in this room yet. Wait for the host to start the game."
	MsgSecretSent    = "📬 I sent your secret in a private message."
	MsgPrivateFailed = "❌ I could not message you privately. Open a chat with me and press Start, then try /reveal."
	MsgDealing       = "🎲 Roles are being dealt. Check your private messages."
)

// FormatRoomCreated renders the reply to /create.
func FormatRoomCreated(code string) string {
	return fmt.Sprintf("✅ Room <code>%s</code> created.\n\nFriends can join with <code>/join %s</code> or the button below. "+
		"You need at least %d players to start.", code, code, game.MinPlayers)
}

// FormatJoined renders the reply to a successful join.
func FormatJoined(name, code string) string {
	return fmt.Sprintf("👋 %s joined room <code>%s</code>.", html.EscapeString(name), code)
}

// FormatStarted renders the start announcement. secrets is nil when roles
// are dealt asynchronously.
func FormatStarted(code string, secrets map[string]models.Secret) string {
	if secrets == nil {
		return fmt.Sprintf("🚀 Game started in room <code>%s</code>.\n%s", code, MsgDealing)
	}
	return fmt.Sprintf("🚀 Game started in room <code>%s</code> with %d players.\nCheck your private messages.\n\n%s",
		code, len(secrets), formatSpeakingOrder(secrets))
}

// FormatRestarted renders the restart announcement.
func FormatRestarted(code string) string {
	return fmt.Sprintf("🔄 New round in room <code>%s</code>.\n%s", code, MsgDealing)
}

func formatSpeakingOrder(secrets map[string]models.Secret) string {
	ordered := make([]models.Secret, 0, len(secrets))
	for _, s := range secrets {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SpeakingPosition < ordered[j].SpeakingPosition })

	var sb strings.Builder
	sb.WriteString("🗣 Speaking order:")
	for _, s := range ordered {
		fmt.Fprintf(&sb, "\n%d. %s", s.SpeakingPosition, html.EscapeString(s.Name))
	}
	return sb.String()
}

var statusLabels = map[string]string{
	models.RoomStatusLobby:   "waiting for players",
	models.RoomStatusStarted: "dealing roles",
	models.RoomStatusDealt:   "in game",
	models.RoomStatusPlaying: "in game",
	models.RoomStatusEnded:   "finished",
}

// FormatStatus renders a room overview without any secret information.
func FormatStatus(view *game.RoomView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏠 Room <code>%s</code>\n", view.Code)
	fmt.Fprintf(&sb, "Status: %s\n", statusLabels[view.Status])
	if view.Round > 0 {
		fmt.Fprintf(&sb, "Round: %d\n", view.Round)
	}
	if !view.AllowJoin {
		sb.WriteString("🔒 Closed to new players\n")
	}

	fmt.Fprintf(&sb, "\n👥 Players (%d):", len(view.Players))
	names := make(map[string]string, len(view.Players))
	for _, p := range view.Players {
		names[p.UserID] = p.Name
		line := "\n• " + html.EscapeString(p.Name)
		if p.IsHost {
			line += " 👑"
		}
		if view.Status != models.RoomStatusLobby && p.Seen {
			line += " ✅"
		}
		sb.WriteString(line)
	}

	if len(view.SpeakingOrder) > 0 {
		sb.WriteString("\n\n🗣 Speaking order:")
		for i, id := range view.SpeakingOrder {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, html.EscapeString(names[id]))
		}
	}
	return sb.String()
}

// FormatSecret renders the private message carrying a player's role.
func FormatSecret(code string, secret *models.Secret, link string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎭 Room <code>%s</code>\n\n", code)

	if secret.IsImpostor() {
		sb.WriteString("🕵️ You are the <b>IMPOSTOR</b>!\nBlend in and try to guess the word.")
		if len(secret.Hints) > 0 {
			sb.WriteString("\n\n💡 Hints:")
			for _, h := range secret.Hints {
				sb.WriteString("\n• " + html.EscapeString(h))
			}
		}
	} else {
		word := ""
		if secret.Word != nil {
			word = *secret.Word
		}
		fmt.Fprintf(&sb, "🙂 You are a civilian.\nThe word is: <b>%s</b>", html.EscapeString(word))
	}

	if secret.SpeakingPosition > 0 {
		fmt.Fprintf(&sb, "\n\n🗣 You speak #%d.", secret.SpeakingPosition)
	}
	if link != "" {
		fmt.Fprintf(&sb, "\n\n🔗 <a href=\"%s\">Open on the web</a>", html.EscapeString(link))
	}
	return sb.String()
}

// RevealURL builds the web page link for a reveal token.
func RevealURL(baseURL, token string) string {
	return baseURL + "/reveal?token=" + url.QueryEscape(token)
}
