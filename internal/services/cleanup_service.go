package services

import (
	"context"
	"time"

	"github.com/mroshb/impostor_bot/internal/repositories"
	"github.com/mroshb/impostor_bot/pkg/errors"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

// CleanupService removes expired rooms and session bindings that point to
// rooms which no longer exist.
type CleanupService struct {
	store    repositories.RoomStore
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewCleanupService(store repositories.RoomStore, ttl, interval time.Duration) *CleanupService {
	return &CleanupService{
		store:    store,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// RunOnce performs a single sweep.
func (s *CleanupService) RunOnce(ctx context.Context) (rooms, sessions int, err error) {
	cutoff := s.now().Add(-s.ttl)

	rooms, err = s.store.DeleteRoomsBefore(ctx, cutoff)
	if err != nil {
		return 0, 0, errors.Internal(err, "failed to delete expired rooms")
	}

	sessions, err = s.store.DeleteOrphanSessions(ctx)
	if err != nil {
		return rooms, 0, errors.Internal(err, "failed to delete orphaned sessions")
	}
	return rooms, sessions, nil
}

// Start sweeps immediately and then every interval until ctx is done.
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("Cleanup service started", "ttl", s.ttl.String(), "interval", s.interval.String())
	for {
		s.sweep(ctx)

		select {
		case <-ctx.Done():
			logger.Info("Cleanup service stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *CleanupService) sweep(ctx context.Context) {
	rooms, sessions, err := s.RunOnce(ctx)
	if err != nil {
		logger.Error("Cleanup failed", "error", err)
		return
	}
	if rooms > 0 || sessions > 0 {
		logger.Info("Cleanup finished", "rooms_deleted", rooms, "sessions_deleted", sessions)
	}
}
