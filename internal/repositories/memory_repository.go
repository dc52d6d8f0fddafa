package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/internal/models"
)

type memoryRoom struct {
	room    models.Room
	players map[string]models.Player
	secrets map[string]models.Secret
}

func (r *memoryRoom) clone() *memoryRoom {
	c := &memoryRoom{
		room:    r.room,
		players: make(map[string]models.Player, len(r.players)),
		secrets: make(map[string]models.Secret, len(r.secrets)),
	}
	c.room.SpeakingOrder = append([]string(nil), r.room.SpeakingOrder...)
	for k, v := range r.players {
		c.players[k] = v
	}
	for k, v := range r.secrets {
		v.Hints = append([]string(nil), v.Hints...)
		c.secrets[k] = v
	}
	return c
}

func (r *memoryRoom) sortedPlayers() []models.Player {
	players := make([]models.Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].UserID < players[j].UserID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players
}

// MemoryRoomRepository keeps rooms in process memory. A single mutex
// serializes every transaction, which gives the same isolation the postgres
// store gets from row locks.
type MemoryRoomRepository struct {
	mu       sync.Mutex
	rooms    map[string]*memoryRoom
	sessions map[string]models.UserSession
	events   events.Publisher
	now      func() time.Time
}

// NewMemoryRoomRepository creates a memory store publishing committed changes
// to pub. pub may be nil.
func NewMemoryRoomRepository(pub events.Publisher) *MemoryRoomRepository {
	return &MemoryRoomRepository{
		rooms:    make(map[string]*memoryRoom),
		sessions: make(map[string]models.UserSession),
		events:   pub,
		now:      time.Now,
	}
}

func (r *MemoryRoomRepository) publish(evs []events.Event) {
	if r.events == nil {
		return
	}
	for _, ev := range evs {
		r.events.Publish(ev)
	}
}

// CreateRoom inserts a room and its host player
func (r *MemoryRoomRepository) CreateRoom(ctx context.Context, room *models.Room, host *models.Player) error {
	if err := ctx.Err(); err != nil {
		return wrapInternal(err, "failed to create room")
	}
	if err := room.Validate(); err != nil {
		return wrapInternal(err, "invalid room")
	}
	if err := host.Validate(); err != nil {
		return wrapInternal(err, "invalid host player")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.Code]; exists {
		return ErrCodeTaken
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = r.now().UTC()
	}

	rec := &memoryRoom{
		room:    *room,
		players: map[string]models.Player{host.UserID: *host},
		secrets: make(map[string]models.Secret),
	}
	r.rooms[room.Code] = rec.clone()
	return nil
}

// UpdateRoom runs fn on a private copy of the room and commits it on success
func (r *MemoryRoomRepository) UpdateRoom(ctx context.Context, code string, fn func(tx RoomTx) error) error {
	if err := ctx.Err(); err != nil {
		return wrapInternal(err, "failed to update room")
	}

	r.mu.Lock()
	rec, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return ErrRoomNotFound
	}

	tx := &memoryTx{rec: rec.clone(), now: r.now}
	if err := fn(tx); err != nil {
		r.mu.Unlock()
		return err
	}
	r.rooms[code] = tx.rec
	r.mu.Unlock()

	r.publish(tx.pending)
	return nil
}

// GetRoom retrieves a room by code
func (r *MemoryRoomRepository) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	room := rec.clone().room
	return &room, nil
}

// ListPlayers returns the room's players ordered by join time
func (r *MemoryRoomRepository) ListPlayers(ctx context.Context, code string) ([]models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[code]
	if !ok {
		return nil, nil
	}
	return rec.sortedPlayers(), nil
}

// ListRoomCodes returns the codes of rooms in status, oldest first
func (r *MemoryRoomRepository) ListRoomCodes(ctx context.Context, status string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]models.Room, 0)
	for _, rec := range r.rooms {
		if rec.room.Status == status {
			matched = append(matched, rec.room)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Code < matched[j].Code
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	codes := make([]string, 0, len(matched))
	for _, room := range matched {
		codes = append(codes, room.Code)
	}
	return codes, nil
}

// GetSecret retrieves a player's secret for the current round
func (r *MemoryRoomRepository) GetSecret(ctx context.Context, code, userID string) (*models.Secret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	secret, ok := rec.secrets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	secret.Hints = append([]string(nil), secret.Hints...)
	return &secret, nil
}

// MarkSeen flags a player as having seen their secret
func (r *MemoryRoomRepository) MarkSeen(ctx context.Context, code, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[code]
	if !ok {
		return nil
	}
	if p, ok := rec.players[userID]; ok {
		p.Seen = true
		rec.players[userID] = p
	}
	return nil
}

// SetSession remembers the user's current room
func (r *MemoryRoomRepository) SetSession(ctx context.Context, userID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[userID] = models.UserSession{UserID: userID, RoomCode: code, UpdatedAt: r.now().UTC()}
	return nil
}

// GetSession returns the user's remembered room
func (r *MemoryRoomRepository) GetSession(ctx context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return "", ErrNotFound
	}
	return s.RoomCode, nil
}

// ClearSession forgets the user's remembered room
func (r *MemoryRoomRepository) ClearSession(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, userID)
	return nil
}

// DeleteRoomsBefore removes rooms created before cutoff
func (r *MemoryRoomRepository) DeleteRoomsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for code, rec := range r.rooms {
		if rec.room.CreatedAt.Before(cutoff) {
			delete(r.rooms, code)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteOrphanSessions removes sessions pointing to rooms that no longer exist
func (r *MemoryRoomRepository) DeleteOrphanSessions(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for userID, s := range r.sessions {
		if _, ok := r.rooms[s.RoomCode]; !ok {
			delete(r.sessions, userID)
			deleted++
		}
	}
	return deleted, nil
}

type memoryTx struct {
	rec     *memoryRoom
	pending []events.Event
	now     func() time.Time
}

func (tx *memoryTx) Room() *models.Room {
	return &tx.rec.room
}

func (tx *memoryTx) Players() ([]models.Player, error) {
	return tx.rec.sortedPlayers(), nil
}

func (tx *memoryTx) SaveRoom() error {
	if err := tx.rec.room.Validate(); err != nil {
		return wrapInternal(err, "invalid room")
	}
	return nil
}

func (tx *memoryTx) UpsertPlayer(p *models.Player) error {
	if err := p.Validate(); err != nil {
		return wrapInternal(err, "invalid player")
	}
	tx.rec.players[p.UserID] = *p
	return nil
}

func (tx *memoryTx) ResetSeen() error {
	for id, p := range tx.rec.players {
		p.Seen = false
		tx.rec.players[id] = p
	}
	return nil
}

func (tx *memoryTx) DeleteSecrets() error {
	tx.rec.secrets = make(map[string]models.Secret)
	return nil
}

func (tx *memoryTx) InsertSecrets(secrets []models.Secret) error {
	staged := make(map[string]models.Secret, len(secrets))
	for _, s := range secrets {
		if err := s.Validate(); err != nil {
			return wrapInternal(err, "invalid secret")
		}
		if _, dup := tx.rec.secrets[s.UserID]; dup {
			return wrapInternal(ErrCodeTaken, "duplicate secret")
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = tx.now().UTC()
		}
		s.Hints = append([]string(nil), s.Hints...)
		staged[s.UserID] = s
	}
	for id, s := range staged {
		tx.rec.secrets[id] = s
	}
	return nil
}

func (tx *memoryTx) Emit(ev events.Event) error {
	tx.pending = append(tx.pending, ev)
	return nil
}
