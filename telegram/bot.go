package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/impostor_bot/internal/game"
	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/internal/security"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

// Sender is the part of *tgbotapi.BotAPI the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Game is the part of the game engine the chat front-end drives.
type Game interface {
	CreateRoom(ctx context.Context, p game.CreatePlayer) (string, error)
	JoinRoom(ctx context.Context, code string, p game.JoinPlayer) error
	GetRoomStatus(ctx context.Context, code string) (*game.RoomView, bool, error)
	StartGame(ctx context.Context, code, callerID string) (map[string]models.Secret, error)
	RestartGame(ctx context.Context, code, callerID string) error
	GetPlayerSecret(ctx context.Context, code, userID string) (*models.Secret, bool, error)
	MarkPlayerSeen(ctx context.Context, code, userID string) error
	RememberRoom(ctx context.Context, userID, code string) error
	CurrentRoom(ctx context.Context, userID string) (string, bool, error)
}

// Options configure optional bot features.
type Options struct {
	Workers int
	// Reveal links are added to private messages when both are set.
	WebBaseURL   string
	RevealSecret string
	RevealTTL    time.Duration
}

type Bot struct {
	api  Sender
	game Game
	opts Options

	// Worker pool for parallel processing
	workerChans []chan tgbotapi.Update
	wg          sync.WaitGroup
}

func NewBot(api Sender, svc Game, opts Options) *Bot {
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	return &Bot{
		api:         api,
		game:        svc,
		opts:        opts,
		workerChans: make([]chan tgbotapi.Update, opts.Workers),
	}
}

// Run dispatches updates to the worker pool until ctx is done or updates is
// closed, then waits for in-flight updates to finish.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for i := range b.workerChans {
		b.workerChans[i] = make(chan tgbotapi.Update, 100)
		b.wg.Add(1)
		go b.startWorker(ctx, b.workerChans[i])
	}
	defer func() {
		for _, ch := range b.workerChans {
			close(ch)
		}
		b.wg.Wait()
		logger.Info("Bot workers stopped")
	}()

	logger.Info("Starting update listener...", "workers", len(b.workerChans))
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				logger.Warn("Update channel closed")
				return
			}
			b.dispatch(update)
		}
	}
}

// dispatch hashes updates by user so each user's updates are handled in order.
func (b *Bot) dispatch(update tgbotapi.Update) {
	var userID int64
	if update.Message != nil && update.Message.From != nil {
		userID = update.Message.From.ID
	} else if update.CallbackQuery != nil {
		userID = update.CallbackQuery.From.ID
	}
	if userID == 0 {
		return
	}

	workerIdx := userID % int64(len(b.workerChans))
	if workerIdx < 0 {
		workerIdx = -workerIdx
	}
	b.workerChans[workerIdx] <- update
}

func (b *Bot) startWorker(ctx context.Context, ch chan tgbotapi.Update) {
	defer b.wg.Done()
	for update := range ch {
		b.handleUpdate(ctx, update)
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in handleUpdate", "error", r)
		}
	}()

	if update.Message != nil && update.Message.From != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	logger.Debug("Received message", "user_id", message.From.ID, "chat_id", message.Chat.ID, "text", message.Text)

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// A bare room code in a private chat joins that room
	if message.Chat.IsPrivate() {
		if code := game.NormalizeCode(message.Text); game.ValidCode(code) {
			b.joinRoom(ctx, newCaller(message.From, message.Chat.ID), code)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	c := newCaller(message.From, message.Chat.ID)
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "create":
		b.createRoom(ctx, c)
	case "join":
		if code, ok := b.resolveCode(ctx, c, args); ok {
			b.joinRoom(ctx, c, code)
		}
	case "start":
		// Deep links arrive as /start join_CODE
		if strings.HasPrefix(args, "join_") {
			b.joinRoom(ctx, c, game.NormalizeCode(strings.TrimPrefix(args, "join_")))
			return
		}
		if args == "" && message.Chat.IsPrivate() {
			if _, found, err := b.game.CurrentRoom(ctx, c.userID); err == nil && !found {
				b.sendMessage(c.chatID, MsgHelp, nil)
				return
			}
		}
		if code, ok := b.resolveCode(ctx, c, args); ok {
			b.startGame(ctx, c, code)
		}
	case "restart":
		if code, ok := b.resolveCode(ctx, c, args); ok {
			b.restartGame(ctx, c, code)
		}
	case "status":
		if code, ok := b.resolveCode(ctx, c, args); ok {
			b.showStatus(ctx, c, code)
		}
	case "reveal":
		if code, ok := b.resolveCode(ctx, c, args); ok {
			b.revealSecret(ctx, c, code)
		}
	case "help":
		b.sendMessage(c.chatID, MsgHelp, nil)
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	b.answerCallback(query.ID, "")

	logger.Debug("Callback query", "data", query.Data, "user_id", query.From.ID)

	action, code, ok := parseCallback(query.Data)
	if !ok {
		return
	}

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	c := newCaller(query.From, chatID)
	code = game.NormalizeCode(code)

	switch action {
	case ActionJoin:
		b.joinRoom(ctx, c, code)
	case ActionStart:
		b.startGame(ctx, c, code)
	case ActionRestart:
		b.restartGame(ctx, c, code)
	case ActionStatus:
		b.showStatus(ctx, c, code)
	}
}

// caller identifies who sent an update and where to answer.
type caller struct {
	userID string
	name   string
	chatID int64
	// private chat with the user, where secrets are delivered
	privateID int64
}

func newCaller(from *tgbotapi.User, chatID int64) caller {
	id := strconv.FormatInt(from.ID, 10)
	return caller{
		userID:    id,
		name:      displayName(from),
		chatID:    chatID,
		privateID: from.ID,
	}
}

func displayName(u *tgbotapi.User) string {
	name := security.SanitizeName(strings.TrimSpace(u.FirstName + " " + u.LastName))
	if name == "" {
		name = security.SanitizeName(u.UserName)
	}
	if name == "" {
		name = "Player " + strconv.FormatInt(u.ID, 10)
	}
	return name
}

func (b *Bot) sendMessage(chatID int64, text string, keyboard interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if kb, ok := keyboard.(tgbotapi.InlineKeyboardMarkup); ok {
		msg.ReplyMarkup = kb
	}

	return send(b.api, msg)
}

// send delivers msg, retrying network errors a few times.
func send(api Sender, msg tgbotapi.MessageConfig) error {
	const maxRetries = 3

	var err error
	for i := 0; i < maxRetries; i++ {
		if _, err = api.Send(msg); err == nil {
			return nil
		}
		logger.Error("Failed to send message", "error", err, "chat_id", msg.ChatID, "attempt", i+1)

		if !isNetworkError(err) {
			return err
		}
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return err
}

func isNetworkError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "network is unreachable")
}

func (b *Bot) answerCallback(queryID, text string) {
	callback := tgbotapi.NewCallback(queryID, text)
	if _, err := b.api.Request(callback); err != nil {
		logger.Error("Failed to answer callback query", "error", err, "query_id", queryID)
	}
}
