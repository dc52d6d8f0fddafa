package models

import (
	"time"

	"gorm.io/gorm"
)

type Room struct {
	Code          string   `gorm:"primaryKey;type:varchar(6)"`
	HostUID       string   `gorm:"type:varchar(64);not null"`
	HostSource    string   `gorm:"type:varchar(20);not null"`
	Status        string   `gorm:"type:varchar(20);default:'lobby';index"`
	AllowJoin     bool     `gorm:"not null;default:true"`
	ChannelRef    *string  `gorm:"type:varchar(64)"`
	Word          *string  `gorm:"type:varchar(255)"`
	ImpostorID    *string  `gorm:"type:varchar(64)"`
	SpeakingOrder []string `gorm:"type:jsonb;serializer:json"`
	Round         int      `gorm:"not null;default:0"`
	StartedAt     *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

// Room status constants
const (
	RoomStatusLobby   = "lobby"
	RoomStatusStarted = "started"
	RoomStatusDealt   = "dealt"
	RoomStatusPlaying = "playing"
	RoomStatusEnded   = "ended"
)

// Origin channels
const (
	SourceWeb      = "web"
	SourceTelegram = "telegram"
)

var validRoomStatuses = map[string]bool{
	RoomStatusLobby:   true,
	RoomStatusStarted: true,
	RoomStatusDealt:   true,
	RoomStatusPlaying: true,
	RoomStatusEnded:   true,
}

// ValidSource reports whether s is a known origin channel.
func ValidSource(s string) bool {
	return s == SourceWeb || s == SourceTelegram
}

// Validate rejects rooms with missing identity or unknown enum values.
func (r *Room) Validate() error {
	if len(r.Code) != 6 || r.HostUID == "" {
		return gorm.ErrInvalidData
	}
	if !validRoomStatuses[r.Status] || !ValidSource(r.HostSource) {
		return gorm.ErrInvalidData
	}
	return nil
}

// BeforeSave hook for validation
func (r *Room) BeforeSave(tx *gorm.DB) error {
	return r.Validate()
}

func (Room) TableName() string {
	return "rooms"
}

type Player struct {
	RoomCode string    `gorm:"primaryKey;type:varchar(6)"`
	UserID   string    `gorm:"primaryKey;type:varchar(64)"`
	Name     string    `gorm:"type:varchar(100);not null"`
	IsHost   bool      `gorm:"not null;default:false"`
	JoinedAt time.Time `gorm:"not null"`
	Seen     bool      `gorm:"not null;default:false"`
	Present  bool      `gorm:"not null;default:true"`
	Source   string    `gorm:"type:varchar(20);not null"`
	OriginID *string   `gorm:"type:varchar(64)"`
}

func (p *Player) Validate() error {
	if p.RoomCode == "" || p.UserID == "" || p.Name == "" {
		return gorm.ErrInvalidData
	}
	if !ValidSource(p.Source) {
		return gorm.ErrInvalidData
	}
	return nil
}

// BeforeSave hook for validation
func (p *Player) BeforeSave(tx *gorm.DB) error {
	return p.Validate()
}

func (Player) TableName() string {
	return "players"
}

type Secret struct {
	RoomCode         string    `gorm:"primaryKey;type:varchar(6)" json:"-"`
	UserID           string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Name             string    `gorm:"type:varchar(100);not null" json:"name"`
	Role             string    `gorm:"type:varchar(20);not null" json:"role"`
	Word             *string   `gorm:"type:varchar(255)" json:"word"`
	OriginID         *string   `gorm:"type:varchar(64)" json:"origin_id"`
	Hints            []string  `gorm:"type:jsonb;serializer:json" json:"hints,omitempty"`
	SpeakingPosition int       `gorm:"not null;default:0" json:"speaking_position"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Role constants
const (
	RoleImpostor = "impostor"
	RoleCivilian = "civilian"
)

// IsImpostor reports whether the secret belongs to the round's impostor.
func (s *Secret) IsImpostor() bool {
	return s.Role == RoleImpostor
}

// Validate enforces the role/word pairing: civilians always carry a word,
// the impostor never does.
func (s *Secret) Validate() error {
	if s.RoomCode == "" || s.UserID == "" {
		return gorm.ErrInvalidData
	}
	switch s.Role {
	case RoleImpostor:
		if s.Word != nil {
			return gorm.ErrInvalidData
		}
	case RoleCivilian:
		if s.Word == nil || *s.Word == "" {
			return gorm.ErrInvalidData
		}
	default:
		return gorm.ErrInvalidData
	}
	return nil
}

// BeforeSave hook for validation
func (s *Secret) BeforeSave(tx *gorm.DB) error {
	return s.Validate()
}

func (Secret) TableName() string {
	return "secrets"
}

// UserSession remembers the last room a chat user touched so commands can omit
// the code.
type UserSession struct {
	UserID    string    `gorm:"primaryKey;type:varchar(64)"`
	RoomCode  string    `gorm:"type:varchar(6);not null;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}
