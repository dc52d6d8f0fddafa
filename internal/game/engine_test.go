package game

import (
	"context"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/internal/repositories"
	"github.com/mroshb/impostor_bot/internal/words"
	"github.com/mroshb/impostor_bot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) count(typ string) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *repositories.MemoryRoomRepository, *recorder) {
	t.Helper()
	rec := &recorder{}
	store := repositories.NewMemoryRoomRepository(rec)
	src := words.NewSource([]words.Entry{
		{Word: "apple", Hints: []string{"fruit", "red"}},
		{Word: "piano", Hints: []string{"keys"}},
	})
	opts = append([]Option{WithRand(rand.New(rand.NewSource(42)))}, opts...)
	return NewEngine(store, src, opts...), store, rec
}

func host() CreatePlayer {
	return CreatePlayer{UserID: "H", Name: "Host", Source: models.SourceWeb}
}

func join(id string) JoinPlayer {
	return JoinPlayer{UserID: id, Name: "Player " + id, Source: models.SourceWeb}
}

// roomWith creates a room hosted by H plus the given joiners.
func roomWith(t *testing.T, e *Engine, joiners ...string) string {
	t.Helper()
	ctx := context.Background()
	code, err := e.CreateRoom(ctx, host())
	require.NoError(t, err)
	for _, id := range joiners {
		require.NoError(t, e.JoinRoom(ctx, code, join(id)))
	}
	return code
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, errors.CodeOf(err), "unexpected error: %v", err)
}

func assertDealt(t *testing.T, store repositories.RoomStore, code string, secrets map[string]models.Secret, players int) {
	t.Helper()
	ctx := context.Background()

	room, err := store.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusDealt, room.Status)
	require.NotNil(t, room.Word)
	require.NotNil(t, room.ImpostorID)
	require.Len(t, secrets, players)

	impostors := 0
	positions := make([]int, 0, players)
	for id, s := range secrets {
		stored, err := store.GetSecret(ctx, code, id)
		require.NoError(t, err)
		assert.Equal(t, s.Role, stored.Role)

		positions = append(positions, s.SpeakingPosition)
		if s.IsImpostor() {
			impostors++
			assert.Nil(t, s.Word)
			assert.Equal(t, *room.ImpostorID, id)
			continue
		}
		require.NotNil(t, s.Word)
		assert.Equal(t, *room.Word, *s.Word)
		assert.Empty(t, s.Hints)
	}
	assert.Equal(t, 1, impostors)

	sort.Ints(positions)
	for i, p := range positions {
		assert.Equal(t, i+1, p)
	}
	assert.ElementsMatch(t, keys(secrets), room.SpeakingOrder)
}

func keys(m map[string]models.Secret) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestEngine_CreateRoom(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	code, err := e.CreateRoom(ctx, host())
	require.NoError(t, err)
	assert.True(t, ValidCode(code), "code %q", code)

	room, err := store.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusLobby, room.Status)
	assert.True(t, room.AllowJoin)
	assert.Equal(t, "H", room.HostUID)

	players, err := store.ListPlayers(ctx, code)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.True(t, players[0].IsHost)
}

func TestEngine_CreateRoomRetriesOnCollision(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	gen := func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	e, _, _ := newTestEngine(t, WithCodeGenerator(gen))
	ctx := context.Background()

	first, err := e.CreateRoom(ctx, host())
	require.NoError(t, err)
	second, err := e.CreateRoom(ctx, CreatePlayer{UserID: "H2", Name: "Other", Source: models.SourceTelegram})
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first)
	assert.Equal(t, "BBBBBB", second)
}

func TestEngine_CreateRoomValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)

	tests := []struct {
		name   string
		player CreatePlayer
	}{
		{"No user", CreatePlayer{Name: "Host", Source: models.SourceWeb}},
		{"No name", CreatePlayer{UserID: "H", Source: models.SourceWeb}},
		{"Unknown source", CreatePlayer{UserID: "H", Name: "Host", Source: "discord"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateRoom(context.Background(), tt.player)
			assertCode(t, err, errors.ErrCodeValidation)
		})
	}
}

func TestEngine_JoinRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown room", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		assertCode(t, e.JoinRoom(ctx, "ZZZZZZ", join("P2")), errors.ErrCodeRoomNotFound)
		assertCode(t, e.JoinRoom(ctx, "nope", join("P2")), errors.ErrCodeRoomNotFound)
	})

	t.Run("Code is case insensitive", func(t *testing.T) {
		e, store, _ := newTestEngine(t)
		code := roomWith(t, e)
		require.NoError(t, e.JoinRoom(ctx, " "+lower(code), join("P2")))

		players, err := store.ListPlayers(ctx, code)
		require.NoError(t, err)
		assert.Len(t, players, 2)
	})

	t.Run("Admission closed", func(t *testing.T) {
		e, store, _ := newTestEngine(t)
		code := roomWith(t, e)
		require.NoError(t, e.SetAdmission(ctx, code, "H", false))

		assertCode(t, e.JoinRoom(ctx, code, join("P2")), errors.ErrCodeAdmissionClosed)
		players, err := store.ListPlayers(ctx, code)
		require.NoError(t, err)
		assert.Len(t, players, 1)
	})

	t.Run("Game already started", func(t *testing.T) {
		e, store, _ := newTestEngine(t)
		code := roomWith(t, e, "P2", "P3")
		_, err := e.StartGame(ctx, code, "H")
		require.NoError(t, err)

		assertCode(t, e.JoinRoom(ctx, code, join("P4")), errors.ErrCodeGameAlreadyStarted)
		players, err := store.ListPlayers(ctx, code)
		require.NoError(t, err)
		assert.Len(t, players, 3)
	})

	t.Run("Rejoin resets seen and keeps host", func(t *testing.T) {
		e, store, _ := newTestEngine(t)
		code := roomWith(t, e, "P2")
		require.NoError(t, e.MarkPlayerSeen(ctx, code, "P2"))

		require.NoError(t, e.JoinRoom(ctx, code, JoinPlayer{UserID: "P2", Name: "Renamed", Source: models.SourceWeb}))
		require.NoError(t, e.JoinRoom(ctx, code, JoinPlayer{UserID: "H", Name: "Host", Source: models.SourceWeb}))

		players, err := store.ListPlayers(ctx, code)
		require.NoError(t, err)
		require.Len(t, players, 2)
		assert.Equal(t, "H", players[0].UserID)
		assert.True(t, players[0].IsHost)
		assert.Equal(t, "Renamed", players[1].Name)
		assert.False(t, players[1].Seen)
	})
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestEngine_GetRoomStatus(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, found, err := e.GetRoomStatus(ctx, "ZZZZZZ")
	require.NoError(t, err)
	assert.False(t, found)

	code := roomWith(t, e, "P2", "P3")
	view, found, err := e.GetRoomStatus(ctx, code)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, code, view.Code)
	assert.Equal(t, models.RoomStatusLobby, view.Status)
	require.Len(t, view.Players, 3)
	assert.Equal(t, []string{"H", "P2", "P3"}, []string{view.Players[0].UserID, view.Players[1].UserID, view.Players[2].UserID})
}

func TestEngine_StartGame(t *testing.T) {
	e, store, rec := newTestEngine(t)
	ctx := context.Background()
	code := roomWith(t, e, "P2", "P3")

	secrets, err := e.StartGame(ctx, code, "H")
	require.NoError(t, err)
	assertDealt(t, store, code, secrets, 3)
	assert.Equal(t, 3, rec.count(events.TypeSecretAdded))

	room, err := store.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, room.Round)
	assert.NotNil(t, room.StartedAt)

	_, err = e.StartGame(ctx, code, "H")
	assertCode(t, err, errors.ErrCodeGameAlreadyStarted)
}

func TestEngine_StartGameImpostorGetsHints(t *testing.T) {
	e, _, _ := newTestEngine(t)
	code := roomWith(t, e, "P2", "P3")

	secrets, err := e.StartGame(context.Background(), code, "H")
	require.NoError(t, err)

	for _, s := range secrets {
		if s.IsImpostor() {
			assert.NotEmpty(t, s.Hints)
		}
	}
}

func TestEngine_StartGameRejectedWithoutMutation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		joiners  []string
		caller   string
		expected string
	}{
		{"Not host", []string{"P2", "P3"}, "P2", errors.ErrCodeNotHost},
		{"Two players", []string{"P2"}, "H", errors.ErrCodeInsufficientPlayer},
		{"Host alone", nil, "H", errors.ErrCodeInsufficientPlayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, rec := newTestEngine(t)
			code := roomWith(t, e, tt.joiners...)

			_, err := e.StartGame(ctx, code, tt.caller)
			assertCode(t, err, tt.expected)

			room, err := store.GetRoom(ctx, code)
			require.NoError(t, err)
			assert.Equal(t, models.RoomStatusLobby, room.Status)
			assert.Nil(t, room.Word)

			_, found, err := e.GetPlayerSecret(ctx, code, "H")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Empty(t, rec.events)
		})
	}

	t.Run("Unknown room", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		_, err := e.StartGame(ctx, "ZZZZZZ", "H")
		assertCode(t, err, errors.ErrCodeRoomNotFound)
	})
}

func TestEngine_GetPlayerSecret(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	code := roomWith(t, e, "P2", "P3")

	for _, id := range []string{"H", "P2", "P3"} {
		_, found, err := e.GetPlayerSecret(ctx, code, id)
		require.NoError(t, err)
		assert.False(t, found, "secret for %s before start", id)
	}

	_, err := e.StartGame(ctx, code, "H")
	require.NoError(t, err)

	secret, found, err := e.GetPlayerSecret(ctx, code, "P2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Player P2", secret.Name)

	_, found, err = e.GetPlayerSecret(ctx, code, "ghost")
	require.NoError(t, err)
	assert.False(t, found, "unknown player in an existing room")

	for _, missing := range []string{"ZZZZZZ", "bad"} {
		_, found, err = e.GetPlayerSecret(ctx, missing, "P2")
		assertCode(t, err, errors.ErrCodeRoomNotFound)
		assert.False(t, found)
	}
}

func TestEngine_MarkPlayerSeen(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	code := roomWith(t, e, "P2")

	require.NoError(t, e.MarkPlayerSeen(ctx, code, "P2"))
	require.NoError(t, e.MarkPlayerSeen(ctx, code, "P2"))
	require.NoError(t, e.MarkPlayerSeen(ctx, code, "ghost"))

	players, err := store.ListPlayers(ctx, code)
	require.NoError(t, err)
	assert.True(t, players[1].Seen)
	assert.False(t, players[0].Seen)
}

func TestEngine_RestartGame(t *testing.T) {
	e, store, rec := newTestEngine(t)
	ctx := context.Background()
	code := roomWith(t, e, "P2", "P3")

	_, err := e.StartGame(ctx, code, "H")
	require.NoError(t, err)
	for _, id := range []string{"H", "P2", "P3"} {
		require.NoError(t, e.MarkPlayerSeen(ctx, code, id))
	}
	before, err := store.ListPlayers(ctx, code)
	require.NoError(t, err)

	require.NoError(t, e.RestartGame(ctx, code, "H"))

	after, err := store.ListPlayers(ctx, code)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range after {
		assert.Equal(t, before[i].UserID, after[i].UserID)
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.False(t, after[i].Seen)
	}

	room, err := store.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, room.Round)
	assert.Equal(t, 6, rec.count(events.TypeSecretAdded))

	secrets := make(map[string]models.Secret)
	for _, id := range []string{"H", "P2", "P3"} {
		s, found, err := e.GetPlayerSecret(ctx, code, id)
		require.NoError(t, err)
		require.True(t, found)
		secrets[id] = *s
	}
	assertDealt(t, store, code, secrets, 3)
}

func TestEngine_RestartFromLobbyDeals(t *testing.T) {
	e, store, rec := newTestEngine(t)
	ctx := context.Background()
	code := roomWith(t, e, "P2", "P3")

	require.NoError(t, e.RestartGame(ctx, code, "H"))

	room, err := store.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusDealt, room.Status)
	assert.Equal(t, 1, room.Round)
	assert.Equal(t, 3, rec.count(events.TypeSecretAdded))

	assertCode(t, e.JoinRoom(ctx, code, join("P4")), errors.ErrCodeGameAlreadyStarted)
	_, err = e.StartGame(ctx, code, "H")
	assertCode(t, err, errors.ErrCodeGameAlreadyStarted)
}

func TestEngine_RestartRejectedWithoutMutation(t *testing.T) {
	ctx := context.Background()

	t.Run("Not host after deal", func(t *testing.T) {
		e, store, rec := newTestEngine(t)
		code := roomWith(t, e, "P2", "P3")
		_, err := e.StartGame(ctx, code, "H")
		require.NoError(t, err)
		for _, id := range []string{"H", "P2", "P3"} {
			require.NoError(t, e.MarkPlayerSeen(ctx, code, id))
		}

		before, err := store.GetRoom(ctx, code)
		require.NoError(t, err)
		secretsBefore := make(map[string]models.Secret)
		for _, id := range []string{"H", "P2", "P3"} {
			s, err := store.GetSecret(ctx, code, id)
			require.NoError(t, err)
			secretsBefore[id] = *s
		}
		eventsBefore := len(rec.events)

		assertCode(t, e.RestartGame(ctx, code, "P2"), errors.ErrCodeNotHost)

		after, err := store.GetRoom(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, before.Status, after.Status)
		assert.Equal(t, before.Round, after.Round)
		assert.Equal(t, *before.Word, *after.Word)
		assert.Equal(t, *before.ImpostorID, *after.ImpostorID)
		assert.Equal(t, before.SpeakingOrder, after.SpeakingOrder)

		for id, want := range secretsBefore {
			got, err := store.GetSecret(ctx, code, id)
			require.NoError(t, err, "secret of %s removed", id)
			assert.Equal(t, want.Role, got.Role)
			assert.Equal(t, want.SpeakingPosition, got.SpeakingPosition)
		}

		players, err := store.ListPlayers(ctx, code)
		require.NoError(t, err)
		require.Len(t, players, 3)
		for _, p := range players {
			assert.True(t, p.Seen, "seen flag of %s reset", p.UserID)
		}
		assert.Len(t, rec.events, eventsBefore)
	})

	tests := []struct {
		name     string
		joiners  []string
		caller   string
		expected string
	}{
		{"Not host in lobby", []string{"P2", "P3"}, "P2", errors.ErrCodeNotHost},
		{"Two players", []string{"P2"}, "H", errors.ErrCodeInsufficientPlayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, rec := newTestEngine(t)
			code := roomWith(t, e, tt.joiners...)

			assertCode(t, e.RestartGame(ctx, code, tt.caller), tt.expected)

			room, err := store.GetRoom(ctx, code)
			require.NoError(t, err)
			assert.Equal(t, models.RoomStatusLobby, room.Status)
			assert.Equal(t, 0, room.Round)
			assert.Nil(t, room.Word)

			players, err := store.ListPlayers(ctx, code)
			require.NoError(t, err)
			assert.Len(t, players, len(tt.joiners)+1)

			_, found, err := e.GetPlayerSecret(ctx, code, "H")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Empty(t, rec.events)
		})
	}

	t.Run("Unknown room", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		assertCode(t, e.RestartGame(ctx, "ZZZZZZ", "H"), errors.ErrCodeRoomNotFound)
	})
}

func TestEngine_ImpostorDrawCoversEveryPlayer(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	code := roomWith(t, e, "P2", "P3")

	_, err := e.StartGame(ctx, code, "H")
	require.NoError(t, err)

	picked := make(map[string]int)
	for i := 0; i < 60; i++ {
		require.NoError(t, e.RestartGame(ctx, code, "H"))
		room, err := store.GetRoom(ctx, code)
		require.NoError(t, err)
		picked[*room.ImpostorID]++
	}
	assert.Len(t, picked, 3)
}

func TestEngine_SetAdmission(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	code := roomWith(t, e)

	assertCode(t, e.SetAdmission(ctx, code, "P2", false), errors.ErrCodeNotHost)
	require.NoError(t, e.SetAdmission(ctx, code, "H", false))

	room, err := store.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.False(t, room.AllowJoin)

	require.NoError(t, e.SetAdmission(ctx, code, "H", true))
	require.NoError(t, e.JoinRoom(ctx, code, join("P2")))
}

func TestEngine_DeferredStart(t *testing.T) {
	e, store, rec := newTestEngine(t, WithStartMode(StartModeDeferred))
	ctx := context.Background()
	code := roomWith(t, e, "P2", "P3")

	secrets, err := e.StartGame(ctx, code, "H")
	require.NoError(t, err)
	assert.Nil(t, secrets)
	assert.Equal(t, 1, rec.count(events.TypeRoomStarted))

	room, err := store.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusStarted, room.Status)
	_, found, err := e.GetPlayerSecret(ctx, code, "H")
	require.NoError(t, err)
	assert.False(t, found)

	assertCode(t, e.JoinRoom(ctx, code, join("P4")), errors.ErrCodeGameAlreadyStarted)

	dealt, err := e.Deal(ctx, code)
	require.NoError(t, err)
	assertDealt(t, store, code, dealt, 3)

	again, err := e.Deal(ctx, code)
	require.NoError(t, err)
	assert.Nil(t, again)

	room, err = store.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, room.Round)
	assert.Equal(t, 3, rec.count(events.TypeSecretAdded))
}

func TestDealer_DealsStartedRooms(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	store := repositories.NewMemoryRoomRepository(bus)
	e := NewEngine(store, words.FromWords([]string{"apple"}), WithStartMode(StartModeDeferred))

	ch, cancelSub := bus.Subscribe(16)
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewDealer(e, ch, 0).Run(ctx)

	code := roomWith(t, e, "P2", "P3")
	_, err := e.StartGame(ctx, code, "H")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		room, err := store.GetRoom(ctx, code)
		return err == nil && room.Status == models.RoomStatusDealt
	}, 2*time.Second, 10*time.Millisecond)

	secret, found, err := e.GetPlayerSecret(ctx, code, "P2")
	require.NoError(t, err)
	require.True(t, found)
	if !secret.IsImpostor() {
		assert.Equal(t, "apple", *secret.Word)
	}
}

func TestDealer_SweepDealsMissedRooms(t *testing.T) {
	e, store, _ := newTestEngine(t, WithStartMode(StartModeDeferred))
	ctx := context.Background()

	first := roomWith(t, e, "P2", "P3")
	second := roomWith(t, e, "P4", "P5")
	lobby := roomWith(t, e, "P6", "P7")
	for _, code := range []string{first, second} {
		_, err := e.StartGame(ctx, code, "H")
		require.NoError(t, err)
	}

	pending, err := e.PendingDeals(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, pending)

	d := NewDealer(e, nil, 0)
	assert.Equal(t, 2, d.Sweep(ctx))
	assert.Equal(t, 0, d.Sweep(ctx))

	for _, code := range []string{first, second} {
		room, err := store.GetRoom(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusDealt, room.Status)
	}
	room, err := store.GetRoom(ctx, lobby)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusLobby, room.Status)
}

func TestDealer_RunSweepsWithoutEvents(t *testing.T) {
	e, store, _ := newTestEngine(t, WithStartMode(StartModeDeferred))
	code := roomWith(t, e, "P2", "P3")
	_, err := e.StartGame(context.Background(), code, "H")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewDealer(e, nil, 10*time.Millisecond).Run(ctx)

	assert.Eventually(t, func() bool {
		room, err := store.GetRoom(ctx, code)
		return err == nil && room.Status == models.RoomStatusDealt
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_CurrentRoom(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	code := roomWith(t, e)

	_, found, err := e.CurrentRoom(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, e.RememberRoom(ctx, "H", code))
	got, found, err := e.CurrentRoom(ctx, "H")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, code, got)

	t.Run("Deleted room clears the session", func(t *testing.T) {
		require.NoError(t, e.RememberRoom(ctx, "P9", "ZZZZZZ"))

		got, found, err := e.CurrentRoom(ctx, "P9")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, got)

		_, err = store.GetSession(ctx, "P9")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestEngine_InfrastructureErrors(t *testing.T) {
	e, _, _ := newTestEngine(t)
	code := roomWith(t, e, "P2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.JoinRoom(ctx, code, join("P3"))
	assertCode(t, err, errors.ErrCodeInternalError)
	assert.False(t, errors.IsDomain(err))
	assert.Equal(t, "internal server error", errors.MessageOf(err))
}
