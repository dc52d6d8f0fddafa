package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/pkg/errors"
)

var (
	// ErrRoomNotFound is returned when the addressed room does not exist.
	ErrRoomNotFound = stderrors.New("room not found")
	// ErrNotFound is returned when a secret or session binding does not exist.
	ErrNotFound = stderrors.New("record not found")
	// ErrCodeTaken is returned by CreateRoom when the code is already in use.
	ErrCodeTaken = stderrors.New("room code already taken")
)

// RoomTx is a read-modify-write view of one locked room. Nothing written
// through it is visible to other callers until the surrounding UpdateRoom
// returns nil, and nothing is written at all if it returns an error.
type RoomTx interface {
	Room() *models.Room
	Players() ([]models.Player, error)
	// SaveRoom persists the current state of Room().
	SaveRoom() error
	UpsertPlayer(p *models.Player) error
	ResetSeen() error
	DeleteSecrets() error
	InsertSecrets(secrets []models.Secret) error
	// Emit queues ev for delivery once the transaction commits.
	Emit(ev events.Event) error
}

// RoomStore is the persistence boundary of the game engine.
type RoomStore interface {
	// CreateRoom inserts the room and its host atomically, or returns
	// ErrCodeTaken if the code is in use.
	CreateRoom(ctx context.Context, room *models.Room, host *models.Player) error
	// UpdateRoom runs fn against the locked room identified by code. It returns
	// ErrRoomNotFound if the room does not exist and fn's error unchanged.
	UpdateRoom(ctx context.Context, code string, fn func(tx RoomTx) error) error

	GetRoom(ctx context.Context, code string) (*models.Room, error)
	// ListRoomCodes returns the codes of rooms in status, oldest first.
	ListRoomCodes(ctx context.Context, status string) ([]string, error)
	ListPlayers(ctx context.Context, code string) ([]models.Player, error)
	// GetSecret returns ErrRoomNotFound for a missing room and ErrNotFound
	// for a room without a secret for userID.
	GetSecret(ctx context.Context, code, userID string) (*models.Secret, error)
	// MarkSeen sets the player's seen flag. Missing players are ignored.
	MarkSeen(ctx context.Context, code, userID string) error

	SetSession(ctx context.Context, userID, code string) error
	GetSession(ctx context.Context, userID string) (string, error)
	ClearSession(ctx context.Context, userID string) error

	// DeleteRoomsBefore removes rooms created before cutoff together with their
	// players and secrets.
	DeleteRoomsBefore(ctx context.Context, cutoff time.Time) (int, error)
	// DeleteOrphanSessions removes session bindings whose room no longer exists.
	DeleteOrphanSessions(ctx context.Context) (int, error)
}

var (
	_ RoomStore = (*RoomRepository)(nil)
	_ RoomStore = (*MemoryRoomRepository)(nil)
)

// passThrough reports whether err is one of the store's flow-control errors or
// an already classified AppError, which callers expect to see unchanged.
func passThrough(err error) bool {
	if stderrors.Is(err, ErrRoomNotFound) || stderrors.Is(err, ErrNotFound) || stderrors.Is(err, ErrCodeTaken) {
		return true
	}
	var appErr *errors.AppError
	return stderrors.As(err, &appErr)
}
