package services

import (
	"context"
	"testing"
	"time"

	"github.com/mroshb/impostor_bot/internal/models"
	"github.com/mroshb/impostor_bot/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRoom(t *testing.T, store repositories.RoomStore, code string, createdAt time.Time) {
	t.Helper()
	room := &models.Room{
		Code:       code,
		HostUID:    "host",
		HostSource: models.SourceTelegram,
		Status:     models.RoomStatusLobby,
		AllowJoin:  true,
		CreatedAt:  createdAt,
	}
	host := &models.Player{
		RoomCode: code,
		UserID:   "host",
		Name:     "Host",
		IsHost:   true,
		JoinedAt: createdAt,
		Present:  true,
		Source:   models.SourceTelegram,
	}
	require.NoError(t, store.CreateRoom(context.Background(), room, host))
}

func TestCleanupService_RunOnce(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryRoomRepository(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedRoom(t, store, "OLD234", now.Add(-25*time.Hour))
	seedRoom(t, store, "NEW234", now.Add(-time.Hour))
	require.NoError(t, store.SetSession(ctx, "a", "OLD234"))
	require.NoError(t, store.SetSession(ctx, "b", "NEW234"))
	require.NoError(t, store.SetSession(ctx, "c", "GONE23"))

	svc := NewCleanupService(store, 24*time.Hour, time.Hour)
	svc.now = func() time.Time { return now }

	rooms, sessions, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 2, sessions)

	_, err = store.GetRoom(ctx, "OLD234")
	assert.ErrorIs(t, err, repositories.ErrRoomNotFound)
	_, err = store.GetRoom(ctx, "NEW234")
	assert.NoError(t, err)

	rooms, sessions, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, rooms)
	assert.Zero(t, sessions)
}

func TestCleanupService_StartStopsWithContext(t *testing.T) {
	store := repositories.NewMemoryRoomRepository(nil)
	seedRoom(t, store, "OLD234", time.Now().Add(-48*time.Hour))

	svc := NewCleanupService(store, 24*time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := store.GetRoom(context.Background(), "OLD234")
		return err != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup service did not stop")
	}
}
