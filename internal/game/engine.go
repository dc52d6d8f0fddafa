// Package game implements the room lifecycle: creation, admission, dealing
// roles for a round and exposing each player's secret.
package game

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/internal/repositories"
	"github.com/mroshb/impostor_bot/pkg/errors"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

// MinPlayers is the smallest room, host included, that can be dealt.
const MinPlayers = 3

// Start modes
const (
	// StartModeSync deals inside the start transaction and returns the secrets.
	StartModeSync = "sync"
	// StartModeDeferred only marks the room started; a Dealer deals it.
	StartModeDeferred = "deferred"
)

const defaultTimeout = 10 * time.Second

// WordSource supplies round words and the impostor's hints.
type WordSource interface {
	RandomWord() string
	Hints(word string) []string
}

// CreatePlayer describes the host of a new room.
type CreatePlayer struct {
	UserID     string
	Name       string
	Source     string
	OriginID   *string
	ChannelRef *string
}

// JoinPlayer describes a player entering an existing room.
type JoinPlayer struct {
	UserID   string
	Name     string
	Source   string
	OriginID *string
}

// PlayerView is the public part of a player record.
type PlayerView struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"is_host"`
	Seen     bool      `json:"seen"`
	Present  bool      `json:"present"`
	Source   string    `json:"source"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomView is the public state of a room. The word and the impostor are
// never part of it.
type RoomView struct {
	Code          string       `json:"room_id"`
	HostUID       string       `json:"host_uid"`
	HostSource    string       `json:"host_source"`
	Status        string       `json:"status"`
	AllowJoin     bool         `json:"allow_join"`
	ChannelRef    *string      `json:"channel_ref,omitempty"`
	Round         int          `json:"round"`
	SpeakingOrder []string     `json:"speaking_order,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	Players       []PlayerView `json:"players"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithStartMode selects StartModeSync or StartModeDeferred.
func WithStartMode(mode string) Option {
	return func(e *Engine) { e.mode = mode }
}

// WithTimeout bounds every store interaction of a single engine call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithRand sets the source used for impostor and speaking order draws.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithCodeGenerator replaces the room code generator.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(e *Engine) { e.newCode = g }
}

type Engine struct {
	store   repositories.RoomStore
	words   WordSource
	mode    string
	timeout time.Duration
	newCode CodeGenerator
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEngine(store repositories.RoomStore, words WordSource, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		words:   words,
		mode:    StartModeSync,
		timeout: defaultTimeout,
		newCode: GenerateCode,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the configured start mode.
func (e *Engine) Mode() string {
	return e.mode
}

// CreateRoom opens a lobby hosted by the caller and returns its code.
func (e *Engine) CreateRoom(ctx context.Context, p CreatePlayer) (string, error) {
	if err := validatePlayer(p.UserID, p.Name, p.Source); err != nil {
		return "", err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	for {
		code, err := e.newCode()
		if err != nil {
			return "", errors.Internal(err, "failed to generate room code")
		}

		now := e.now().UTC()
		room := &models.Room{
			Code:       code,
			HostUID:    p.UserID,
			HostSource: p.Source,
			Status:     models.RoomStatusLobby,
			AllowJoin:  true,
			ChannelRef: p.ChannelRef,
			CreatedAt:  now,
		}
		host := &models.Player{
			RoomCode: code,
			UserID:   p.UserID,
			Name:     p.Name,
			IsHost:   true,
			JoinedAt: now,
			Present:  true,
			Source:   p.Source,
			OriginID: p.OriginID,
		}

		err = e.store.CreateRoom(ctx, room, host)
		if err == nil {
			logger.Info("Room created", "code", code, "host", p.UserID, "source", p.Source)
			return code, nil
		}
		if !stderrors.Is(err, repositories.ErrCodeTaken) {
			return "", classify(err, code, "create room")
		}
		if ctx.Err() != nil {
			return "", errors.Internal(ctx.Err(), "failed to create room")
		}
		logger.Debug("Room code collision, retrying", "code", code)
	}
}

// JoinRoom adds the caller to a lobby. Joining again while the room is still
// in the lobby overwrites the record and clears its seen flag.
func (e *Engine) JoinRoom(ctx context.Context, code string, p JoinPlayer) error {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return roomNotFound(code)
	}
	if err := validatePlayer(p.UserID, p.Name, p.Source); err != nil {
		return err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	err := e.store.UpdateRoom(ctx, code, func(tx repositories.RoomTx) error {
		room := tx.Room()
		if !room.AllowJoin {
			return errors.New(errors.ErrCodeAdmissionClosed, "Room is not accepting new players")
		}
		if room.Status != models.RoomStatusLobby {
			return errors.New(errors.ErrCodeGameAlreadyStarted, "Game has already started")
		}

		players, err := tx.Players()
		if err != nil {
			return err
		}
		joinedAt := e.now().UTC()
		for _, existing := range players {
			if existing.UserID == p.UserID {
				joinedAt = existing.JoinedAt
				break
			}
		}

		return tx.UpsertPlayer(&models.Player{
			RoomCode: code,
			UserID:   p.UserID,
			Name:     p.Name,
			IsHost:   room.HostUID == p.UserID,
			JoinedAt: joinedAt,
			Seen:     false,
			Present:  true,
			Source:   p.Source,
			OriginID: p.OriginID,
		})
	})
	if err != nil {
		return classify(err, code, "join room")
	}

	logger.Info("Player joined room", "code", code, "user", p.UserID, "source", p.Source)
	return nil
}

// GetRoomStatus returns the room and its players ordered by join time.
// found is false when no room has this code.
func (e *Engine) GetRoomStatus(ctx context.Context, code string) (*RoomView, bool, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, false, nil
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	room, err := e.store.GetRoom(ctx, code)
	if stderrors.Is(err, repositories.ErrRoomNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(err, code, "load room")
	}

	players, err := e.store.ListPlayers(ctx, code)
	if err != nil {
		return nil, false, classify(err, code, "load players")
	}

	view := &RoomView{
		Code:          room.Code,
		HostUID:       room.HostUID,
		HostSource:    room.HostSource,
		Status:        room.Status,
		AllowJoin:     room.AllowJoin,
		ChannelRef:    room.ChannelRef,
		Round:         room.Round,
		SpeakingOrder: room.SpeakingOrder,
		CreatedAt:     room.CreatedAt,
		StartedAt:     room.StartedAt,
		Players:       make([]PlayerView, 0, len(players)),
	}
	for _, p := range players {
		view.Players = append(view.Players, PlayerView{
			UserID:   p.UserID,
			Name:     p.Name,
			IsHost:   p.IsHost,
			Seen:     p.Seen,
			Present:  p.Present,
			Source:   p.Source,
			JoinedAt: p.JoinedAt,
		})
	}
	return view, true, nil
}

// StartGame starts the first round. In sync mode the returned map holds every
// player's secret; in deferred mode it is nil and a Dealer deals the room.
func (e *Engine) StartGame(ctx context.Context, code, callerID string) (map[string]models.Secret, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, roomNotFound(code)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var dealt map[string]models.Secret
	err := e.store.UpdateRoom(ctx, code, func(tx repositories.RoomTx) error {
		dealt = nil
		room := tx.Room()
		if room.HostUID != callerID {
			return errors.New(errors.ErrCodeNotHost, "Only the host can start the game")
		}

		players, err := tx.Players()
		if err != nil {
			return err
		}
		if len(players) < MinPlayers {
			return errors.New(errors.ErrCodeInsufficientPlayer, fmt.Sprintf("Need at least %d players to start", MinPlayers))
		}
		if room.Status != models.RoomStatusLobby {
			return errors.New(errors.ErrCodeGameAlreadyStarted, "Game has already started")
		}

		if e.mode == StartModeDeferred {
			room.Status = models.RoomStatusStarted
			if err := tx.SaveRoom(); err != nil {
				return err
			}
			return tx.Emit(events.Event{Type: events.TypeRoomStarted, RoomCode: code})
		}

		dealt, err = e.deal(tx, players)
		return err
	})
	if err != nil {
		return nil, classify(err, code, "start game")
	}

	logger.Info("Game started", "code", code, "mode", e.mode)
	return dealt, nil
}

// Deal draws roles for a room in the started state. Rooms in any other state
// are left untouched, so repeated calls for the same round deal once.
func (e *Engine) Deal(ctx context.Context, code string) (map[string]models.Secret, error) {
	code = NormalizeCode(code)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var dealt map[string]models.Secret
	err := e.store.UpdateRoom(ctx, code, func(tx repositories.RoomTx) error {
		dealt = nil
		if tx.Room().Status != models.RoomStatusStarted {
			return nil
		}

		players, err := tx.Players()
		if err != nil {
			return err
		}
		if len(players) < MinPlayers {
			return errors.New(errors.ErrCodeInsufficientPlayer, fmt.Sprintf("Need at least %d players to start", MinPlayers))
		}

		dealt, err = e.deal(tx, players)
		return err
	})
	if err != nil {
		return nil, classify(err, code, "deal room")
	}

	if dealt == nil {
		logger.Debug("Room not waiting for a deal, skipping", "code", code)
	} else {
		logger.Info("Room dealt", "code", code, "players", len(dealt))
	}
	return dealt, nil
}

// PendingDeals returns the rooms started but not yet dealt.
func (e *Engine) PendingDeals(ctx context.Context) ([]string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	codes, err := e.store.ListRoomCodes(ctx, models.RoomStatusStarted)
	if err != nil {
		return nil, errors.Internal(err, "failed to list started rooms")
	}
	return codes, nil
}

// GetPlayerSecret returns the player's secret for the current round. found is
// false while the room exists but holds no secret for the player; a missing
// room is ROOM_NOT_FOUND.
func (e *Engine) GetPlayerSecret(ctx context.Context, code, userID string) (*models.Secret, bool, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, false, roomNotFound(code)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	secret, err := e.store.GetSecret(ctx, code, userID)
	if stderrors.Is(err, repositories.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(err, code, "load secret")
	}
	return secret, true, nil
}

// MarkPlayerSeen records that the player viewed their secret. Unknown players
// are ignored.
func (e *Engine) MarkPlayerSeen(ctx context.Context, code, userID string) error {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.store.MarkSeen(ctx, code, userID); err != nil {
		return classify(err, code, "mark player seen")
	}
	return nil
}

// RestartGame deals a new round to the same players. A room still in the
// lobby is started as by StartGame.
func (e *Engine) RestartGame(ctx context.Context, code, callerID string) error {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return roomNotFound(code)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	err := e.store.UpdateRoom(ctx, code, func(tx repositories.RoomTx) error {
		room := tx.Room()
		if room.HostUID != callerID {
			return errors.New(errors.ErrCodeNotHost, "Only the host can restart the game")
		}

		players, err := tx.Players()
		if err != nil {
			return err
		}
		if len(players) < MinPlayers {
			return errors.New(errors.ErrCodeInsufficientPlayer, fmt.Sprintf("Need at least %d players to restart", MinPlayers))
		}
		if err := tx.ResetSeen(); err != nil {
			return err
		}
		if err := tx.DeleteSecrets(); err != nil {
			return err
		}
		for i := range players {
			players[i].Seen = false
		}

		room.Status = models.RoomStatusStarted
		room.Word = nil
		room.ImpostorID = nil
		room.SpeakingOrder = nil
		if e.mode == StartModeDeferred {
			if err := tx.SaveRoom(); err != nil {
				return err
			}
			return tx.Emit(events.Event{Type: events.TypeRoomStarted, RoomCode: code})
		}

		_, err = e.deal(tx, players)
		return err
	})
	if err != nil {
		return classify(err, code, "restart game")
	}

	logger.Info("Game restarted", "code", code, "mode", e.mode)
	return nil
}

// SetAdmission opens or closes the room to new players.
func (e *Engine) SetAdmission(ctx context.Context, code, callerID string, open bool) error {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return roomNotFound(code)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	err := e.store.UpdateRoom(ctx, code, func(tx repositories.RoomTx) error {
		room := tx.Room()
		if room.HostUID != callerID {
			return errors.New(errors.ErrCodeNotHost, "Only the host can change admission")
		}
		room.AllowJoin = open
		return tx.SaveRoom()
	})
	if err != nil {
		return classify(err, code, "update admission")
	}

	logger.Info("Room admission changed", "code", code, "allow_join", open)
	return nil
}

// RandomWord draws a word from the dictionary.
func (e *Engine) RandomWord() string {
	return e.words.RandomWord()
}

// RememberRoom binds the user to code so later commands may omit it.
func (e *Engine) RememberRoom(ctx context.Context, userID, code string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.store.SetSession(ctx, userID, NormalizeCode(code)); err != nil {
		return classify(err, code, "save session")
	}
	return nil
}

// CurrentRoom returns the room last bound to the user. A binding to a room
// that no longer exists is cleared and reported as not found.
func (e *Engine) CurrentRoom(ctx context.Context, userID string) (string, bool, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	code, err := e.store.GetSession(ctx, userID)
	if stderrors.Is(err, repositories.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(err, "", "load session")
	}

	_, err = e.store.GetRoom(ctx, code)
	if stderrors.Is(err, repositories.ErrRoomNotFound) {
		if err := e.store.ClearSession(ctx, userID); err != nil {
			return "", false, classify(err, code, "clear session")
		}
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(err, code, "load room")
	}
	return code, true, nil
}

// deal draws the word, the impostor and the speaking order, replaces the
// room's secrets and queues one secret.added event per player.
func (e *Engine) deal(tx repositories.RoomTx, players []models.Player) (map[string]models.Secret, error) {
	room := tx.Room()
	word := e.words.RandomWord()

	e.mu.Lock()
	impostor := players[e.rng.Intn(len(players))].UserID
	order := make([]string, len(players))
	for i, p := range players {
		order[i] = p.UserID
	}
	e.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	e.mu.Unlock()

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i + 1
	}

	now := e.now().UTC()
	secrets := make([]models.Secret, 0, len(players))
	for _, p := range players {
		s := models.Secret{
			RoomCode:         room.Code,
			UserID:           p.UserID,
			Name:             p.Name,
			OriginID:         p.OriginID,
			SpeakingPosition: position[p.UserID],
			CreatedAt:        now,
		}
		if p.UserID == impostor {
			s.Role = models.RoleImpostor
			s.Hints = e.words.Hints(word)
		} else {
			w := word
			s.Role = models.RoleCivilian
			s.Word = &w
		}
		secrets = append(secrets, s)
	}

	if err := tx.DeleteSecrets(); err != nil {
		return nil, err
	}
	if err := tx.InsertSecrets(secrets); err != nil {
		return nil, err
	}

	room.Word = &word
	room.ImpostorID = &impostor
	room.SpeakingOrder = order
	room.StartedAt = &now
	room.Round++
	room.Status = models.RoomStatusDealt
	if err := tx.SaveRoom(); err != nil {
		return nil, err
	}

	dealt := make(map[string]models.Secret, len(secrets))
	for _, s := range secrets {
		if err := tx.Emit(events.Event{Type: events.TypeSecretAdded, RoomCode: room.Code, UserID: s.UserID}); err != nil {
			return nil, err
		}
		dealt[s.UserID] = s
	}
	return dealt, nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func validatePlayer(userID, name, source string) error {
	if userID == "" {
		return errors.New(errors.ErrCodeValidation, "User id is required")
	}
	if name == "" {
		return errors.New(errors.ErrCodeValidation, "Display name is required")
	}
	if !models.ValidSource(source) {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("Unknown source %q", source))
	}
	return nil
}

func roomNotFound(code string) error {
	return errors.New(errors.ErrCodeRoomNotFound, fmt.Sprintf("Room %s does not exist", code))
}

// classify maps store results onto the engine's error kinds: missing rooms
// become ROOM_NOT_FOUND, AppErrors pass through, anything else is internal.
func classify(err error, code, action string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, repositories.ErrRoomNotFound) {
		return roomNotFound(code)
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.Internal(err, "failed to "+action)
}
