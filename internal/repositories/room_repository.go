package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomRepository is the PostgreSQL room store. Change events are sent with
// pg_notify inside the writing transaction, so PostgreSQL delivers them only
// when the transaction commits.
type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func wrapInternal(err error, message string) error {
	return errors.Internal(err, message)
}

// CreateRoom inserts a room and its host player, failing with ErrCodeTaken on
// a code collision
func (r *RoomRepository) CreateRoom(ctx context.Context, room *models.Room, host *models.Player) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(room)
		if result.Error != nil {
			return wrapInternal(result.Error, "failed to create room")
		}
		if result.RowsAffected == 0 {
			return ErrCodeTaken
		}

		if err := tx.Create(host).Error; err != nil {
			return wrapInternal(err, "failed to create host player")
		}
		return nil
	})
	return classify(err, "failed to create room")
}

// UpdateRoom locks the room row and runs fn inside one transaction
func (r *RoomRepository) UpdateRoom(ctx context.Context, code string, fn func(tx RoomTx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&room)

		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		if result.Error != nil {
			return wrapInternal(result.Error, "failed to lock room")
		}

		return fn(&gormRoomTx{tx: tx, room: &room})
	})
	return classify(err, "failed to update room")
}

// GetRoom retrieves a room by code
func (r *RoomRepository) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	result := r.db.WithContext(ctx).Where("code = ?", code).First(&room)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if result.Error != nil {
		return nil, wrapInternal(result.Error, "failed to get room")
	}

	return &room, nil
}

// ListPlayers retrieves all players of a room ordered by join time
func (r *RoomRepository) ListPlayers(ctx context.Context, code string) ([]models.Player, error) {
	var players []models.Player
	result := r.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("joined_at ASC, user_id ASC").
		Find(&players)

	if result.Error != nil {
		return nil, wrapInternal(result.Error, "failed to list players")
	}

	return players, nil
}

// ListRoomCodes returns the codes of rooms in status, oldest first
func (r *RoomRepository) ListRoomCodes(ctx context.Context, status string) ([]string, error) {
	var codes []string
	result := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("status = ?", status).
		Order("created_at").
		Pluck("code", &codes)

	if result.Error != nil {
		return nil, wrapInternal(result.Error, "failed to list rooms")
	}

	return codes, nil
}

// GetSecret retrieves a player's secret. A missing room is ErrRoomNotFound,
// a room without that secret ErrNotFound.
func (r *RoomRepository) GetSecret(ctx context.Context, code, userID string) (*models.Secret, error) {
	var secret models.Secret
	result := r.db.WithContext(ctx).
		Where("room_code = ? AND user_id = ?", code, userID).
		First(&secret)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		var rooms int64
		if err := r.db.WithContext(ctx).Model(&models.Room{}).Where("code = ?", code).Count(&rooms).Error; err != nil {
			return nil, wrapInternal(err, "failed to get room")
		}
		if rooms == 0 {
			return nil, ErrRoomNotFound
		}
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, wrapInternal(result.Error, "failed to get secret")
	}

	return &secret, nil
}

// MarkSeen sets the player's seen flag; a missing player matches no rows
func (r *RoomRepository) MarkSeen(ctx context.Context, code, userID string) error {
	result := r.db.WithContext(ctx).Model(&models.Player{}).
		Where("room_code = ? AND user_id = ?", code, userID).
		UpdateColumn("seen", true)

	if result.Error != nil {
		return wrapInternal(result.Error, "failed to mark player seen")
	}

	return nil
}

// SetSession upserts the user's remembered room
func (r *RoomRepository) SetSession(ctx context.Context, userID, code string) error {
	session := &models.UserSession{UserID: userID, RoomCode: code}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"room_code", "updated_at"}),
		}).
		Create(session)

	if result.Error != nil {
		return wrapInternal(result.Error, "failed to store session")
	}

	return nil
}

// GetSession returns the user's remembered room
func (r *RoomRepository) GetSession(ctx context.Context, userID string) (string, error) {
	var session models.UserSession
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&session)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if result.Error != nil {
		return "", wrapInternal(result.Error, "failed to get session")
	}

	return session.RoomCode, nil
}

// ClearSession deletes the user's remembered room
func (r *RoomRepository) ClearSession(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserSession{})
	if result.Error != nil {
		return wrapInternal(result.Error, "failed to clear session")
	}
	return nil
}

// DeleteRoomsBefore removes expired rooms with their players and secrets
func (r *RoomRepository) DeleteRoomsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var deleted int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var codes []string
		if err := tx.Model(&models.Room{}).Where("created_at < ?", cutoff).Pluck("code", &codes).Error; err != nil {
			return wrapInternal(err, "failed to find expired rooms")
		}
		if len(codes) == 0 {
			return nil
		}

		if err := tx.Where("room_code IN ?", codes).Delete(&models.Secret{}).Error; err != nil {
			return wrapInternal(err, "failed to delete secrets")
		}
		if err := tx.Where("room_code IN ?", codes).Delete(&models.Player{}).Error; err != nil {
			return wrapInternal(err, "failed to delete players")
		}
		result := tx.Where("code IN ?", codes).Delete(&models.Room{})
		if result.Error != nil {
			return wrapInternal(result.Error, "failed to delete rooms")
		}
		deleted = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, classify(err, "failed to delete expired rooms")
	}
	return deleted, nil
}

// DeleteOrphanSessions removes sessions whose room no longer exists
func (r *RoomRepository) DeleteOrphanSessions(ctx context.Context) (int, error) {
	db := r.db.WithContext(ctx)
	result := db.Where("room_code NOT IN (?)", db.Model(&models.Room{}).Select("code")).
		Delete(&models.UserSession{})

	if result.Error != nil {
		return 0, wrapInternal(result.Error, "failed to delete orphaned sessions")
	}

	return int(result.RowsAffected), nil
}

func classify(err error, message string) error {
	if err == nil || passThrough(err) {
		return err
	}
	return wrapInternal(err, message)
}

type gormRoomTx struct {
	tx   *gorm.DB
	room *models.Room
}

func (t *gormRoomTx) Room() *models.Room {
	return t.room
}

func (t *gormRoomTx) Players() ([]models.Player, error) {
	var players []models.Player
	if err := t.tx.Where("room_code = ?", t.room.Code).Order("joined_at ASC, user_id ASC").Find(&players).Error; err != nil {
		return nil, wrapInternal(err, "failed to list players")
	}
	return players, nil
}

func (t *gormRoomTx) SaveRoom() error {
	if err := t.tx.Save(t.room).Error; err != nil {
		return wrapInternal(err, "failed to save room")
	}
	return nil
}

func (t *gormRoomTx) UpsertPlayer(p *models.Player) error {
	result := t.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_code"}, {Name: "user_id"}},
		UpdateAll: true,
	}).Create(p)

	if result.Error != nil {
		return wrapInternal(result.Error, "failed to save player")
	}
	return nil
}

func (t *gormRoomTx) ResetSeen() error {
	if err := t.tx.Model(&models.Player{}).Where("room_code = ?", t.room.Code).UpdateColumn("seen", false).Error; err != nil {
		return wrapInternal(err, "failed to reset seen flags")
	}
	return nil
}

func (t *gormRoomTx) DeleteSecrets() error {
	if err := t.tx.Where("room_code = ?", t.room.Code).Delete(&models.Secret{}).Error; err != nil {
		return wrapInternal(err, "failed to delete secrets")
	}
	return nil
}

func (t *gormRoomTx) InsertSecrets(secrets []models.Secret) error {
	if len(secrets) == 0 {
		return nil
	}
	if err := t.tx.Create(&secrets).Error; err != nil {
		return wrapInternal(err, "failed to insert secrets")
	}
	return nil
}

func (t *gormRoomTx) Emit(ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return wrapInternal(err, "failed to encode event")
	}
	if err := t.tx.Exec("SELECT pg_notify(?, ?)", events.NotifyChannel, string(payload)).Error; err != nil {
		return wrapInternal(err, "failed to emit event")
	}
	return nil
}
