package telegram

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/impostor_bot/internal/game"
	"github.com/mroshb/impostor_bot/internal/repositories"
	"github.com/mroshb/impostor_bot/internal/words"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const groupChat = int64(-1001)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *MockSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	resp, _ := args.Get(0).(*tgbotapi.APIResponse)
	return resp, args.Error(1)
}

// sent returns the messages passed to Send, in order.
func (m *MockSender) sent() []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, call := range m.Calls {
		if call.Method != "Send" {
			continue
		}
		if msg, ok := call.Arguments.Get(0).(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MockSender) last() tgbotapi.MessageConfig {
	msgs := m.sent()
	if len(msgs) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return msgs[len(msgs)-1]
}

func (m *MockSender) sentTo(chatID int64) []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, msg := range m.sent() {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

func newMockSender() *MockSender {
	sender := new(MockSender)
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{MessageID: 1}, nil)
	sender.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil)
	return sender
}

func newTestEngine() *game.Engine {
	return game.NewEngine(repositories.NewMemoryRoomRepository(nil), words.FromWords([]string{"apple"}))
}

func newTestBot() (*Bot, *MockSender, *game.Engine) {
	sender := newMockSender()
	engine := newTestEngine()
	return NewBot(sender, engine, Options{Workers: 2}), sender, engine
}

func user(id int64) *tgbotapi.User {
	return &tgbotapi.User{ID: id, FirstName: "User", LastName: strconv.FormatInt(id, 10)}
}

func command(userID, chatID int64, text string) tgbotapi.Update {
	cmdLen := strings.Index(text, " ")
	if cmdLen < 0 {
		cmdLen = len(text)
	}
	chatType := "group"
	if chatID == userID {
		chatType = "private"
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     user(userID),
		Chat:     &tgbotapi.Chat{ID: chatID, Type: chatType},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func callback(userID, chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    user(userID),
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID, Type: "group"}},
		Data:    data,
	}}
}

// createRoom runs /create as user 1 in the group and returns the new code.
func createRoom(t *testing.T, b *Bot, engine *game.Engine) string {
	t.Helper()
	ctx := context.Background()
	b.handleUpdate(ctx, command(1, groupChat, "/create"))

	code, found, err := engine.CurrentRoom(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	return code
}

func TestBot_CreateJoinStart(t *testing.T) {
	b, sender, engine := newTestBot()
	ctx := context.Background()

	code := createRoom(t, b, engine)
	assert.Contains(t, sender.last().Text, code)

	b.handleUpdate(ctx, command(2, groupChat, "/join "+strings.ToLower(code)))
	assert.Contains(t, sender.last().Text, "User 2 joined")
	b.handleUpdate(ctx, command(3, groupChat, "/join "+code))

	// Code omitted: falls back to the host's current room
	b.handleUpdate(ctx, command(1, groupChat, "/start"))
	assert.Contains(t, sender.last().Text, "Speaking order")

	view, found, err := engine.GetRoomStatus(ctx, code)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "dealt", view.Status)
	assert.Len(t, view.Players, 3)
	assert.Equal(t, "telegram", view.Players[0].Source)
}

func TestBot_DomainErrorsAreShown(t *testing.T) {
	b, sender, engine := newTestBot()
	ctx := context.Background()
	code := createRoom(t, b, engine)
	b.handleUpdate(ctx, command(2, groupChat, "/join "+code))

	b.handleUpdate(ctx, command(2, groupChat, "/start "+code))
	assert.Equal(t, "❌ Only the host can start the game", sender.last().Text)

	b.handleUpdate(ctx, command(1, groupChat, "/start "+code))
	assert.Equal(t, "❌ Need at least 3 players to start", sender.last().Text)

	b.handleUpdate(ctx, command(5, groupChat, "/join ZZZZZZ"))
	assert.Equal(t, "❌ Room ZZZZZZ does not exist", sender.last().Text)

	b.handleUpdate(ctx, command(5, groupChat, "/reveal ZZZZZZ"))
	assert.Equal(t, "❌ Room ZZZZZZ does not exist", sender.last().Text)
}

func TestBot_MissingCode(t *testing.T) {
	b, sender, _ := newTestBot()
	ctx := context.Background()

	for _, text := range []string{"/status", "/join", "/restart", "/reveal"} {
		t.Run(text, func(t *testing.T) {
			b.handleUpdate(ctx, command(9, groupChat, text))
			assert.Equal(t, MsgNeedCode, sender.last().Text)
		})
	}
}

func TestBot_StartInPrivateWithoutRoomShowsHelp(t *testing.T) {
	b, sender, _ := newTestBot()
	b.handleUpdate(context.Background(), command(9, 9, "/start"))
	assert.Equal(t, MsgHelp, sender.last().Text)
}

func TestBot_Status(t *testing.T) {
	b, sender, engine := newTestBot()
	code := createRoom(t, b, engine)

	b.handleUpdate(context.Background(), command(1, groupChat, "/status"))
	text := sender.last().Text
	assert.Contains(t, text, code)
	assert.Contains(t, text, "User 1 👑")
	assert.Contains(t, text, "waiting for players")
}

func TestBot_Reveal(t *testing.T) {
	b, sender, engine := newTestBot()
	b.opts.WebBaseURL = "https://impostor.example"
	b.opts.RevealSecret = "test_secret_key_minimum_32_chars"
	b.opts.RevealTTL = time.Hour
	ctx := context.Background()

	code := createRoom(t, b, engine)
	b.handleUpdate(ctx, command(1, groupChat, "/reveal"))
	assert.Equal(t, MsgNoSecretYet, sender.last().Text)

	b.handleUpdate(ctx, command(2, groupChat, "/join "+code))
	b.handleUpdate(ctx, command(3, groupChat, "/join "+code))
	b.handleUpdate(ctx, command(1, groupChat, "/start"))

	b.handleUpdate(ctx, command(2, groupChat, "/reveal"))
	assert.Equal(t, MsgSecretSent, sender.last().Text)

	private := sender.sentTo(2)
	require.Len(t, private, 1)
	assert.Contains(t, private[0].Text, code)
	assert.Contains(t, private[0].Text, "https://impostor.example/reveal?token=")

	view, _, err := engine.GetRoomStatus(ctx, code)
	require.NoError(t, err)
	for _, p := range view.Players {
		assert.Equal(t, p.UserID == "2", p.Seen, "seen flag of %s", p.UserID)
	}
}

func TestBot_Callbacks(t *testing.T) {
	b, sender, engine := newTestBot()
	ctx := context.Background()
	code := createRoom(t, b, engine)

	b.handleUpdate(ctx, callback(2, groupChat, "join:"+code))
	b.handleUpdate(ctx, callback(3, groupChat, "join:"+code))
	b.handleUpdate(ctx, callback(1, groupChat, "start:"+code))
	assert.Contains(t, sender.last().Text, "Game started")

	b.handleUpdate(ctx, callback(1, groupChat, "restart:"+code))
	assert.Contains(t, sender.last().Text, "New round")

	b.handleUpdate(ctx, callback(2, groupChat, "bogus"))

	view, _, err := engine.GetRoomStatus(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Round)
	sender.AssertCalled(t, "Request", mock.Anything)
}

func TestBot_PrivateCodeJoins(t *testing.T) {
	b, _, engine := newTestBot()
	ctx := context.Background()
	code := createRoom(t, b, engine)

	b.handleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
		From: user(4),
		Chat: &tgbotapi.Chat{ID: 4, Type: "private"},
		Text: " " + strings.ToLower(code) + " ",
	}})

	view, _, err := engine.GetRoomStatus(ctx, code)
	require.NoError(t, err)
	assert.Len(t, view.Players, 2)
}

func TestBot_RunProcessesUpdates(t *testing.T) {
	b, _, engine := newTestBot()

	updates := make(chan tgbotapi.Update, 2)
	updates <- command(1, groupChat, "/create")
	updates <- tgbotapi.Update{}
	close(updates)

	b.Run(context.Background(), updates)

	_, found, err := engine.CurrentRoom(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data   string
		action string
		code   string
		ok     bool
	}{
		{"join:ABC234", ActionJoin, "ABC234", true},
		{"status:ABC234", ActionStatus, "ABC234", true},
		{"join:", "", "", false},
		{"join", "", "", false},
		{":ABC234", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, code, ok := parseCallback(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := DefaultBackoff
	expected := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second, 60 * time.Second, 60 * time.Second}
	for i, want := range expected {
		assert.Equal(t, want, b.Delay(i+1), "attempt %d", i+1)
	}
}

func TestBackoff_Retry(t *testing.T) {
	b := Backoff{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}
	boom := stderrors.New("boom")

	t.Run("Gives up", func(t *testing.T) {
		calls := 0
		err := b.Retry(context.Background(), func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("Succeeds", func(t *testing.T) {
		calls := 0
		err := b.Retry(context.Background(), func() error {
			calls++
			if calls < 2 {
				return boom
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("Cancelled", func(t *testing.T) {
		slow := Backoff{Attempts: 5, Base: time.Hour, Max: time.Hour}
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := slow.Retry(ctx, func() error {
			calls++
			cancel()
			return boom
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
