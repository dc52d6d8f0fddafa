// Package app wires the room store, event bus and game engine shared by the
// bot and API binaries.
package app

import (
	"context"

	"github.com/mroshb/impostor_bot/internal/config"
	"github.com/mroshb/impostor_bot/internal/database"
	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/internal/game"
	"github.com/mroshb/impostor_bot/internal/repositories"
	"github.com/mroshb/impostor_bot/internal/services"
	"github.com/mroshb/impostor_bot/internal/words"
	"github.com/mroshb/impostor_bot/pkg/logger"
	"gorm.io/gorm"
)

type Runtime struct {
	Bus     *events.Bus
	Store   repositories.RoomStore
	Engine  *game.Engine
	Cleanup *services.CleanupService

	db *gorm.DB
}

// Start opens the configured store and starts the background workers. They
// stop when ctx is done.
func Start(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Bus: events.NewBus()}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store, rooms will not survive a restart")
		rt.Store = repositories.NewMemoryRoomRepository(rt.Bus)
	default:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			database.Close(db)
			return nil, err
		}
		rt.db = db
		rt.Store = repositories.NewRoomRepository(db)

		// Events from every process sharing the database arrive over NOTIFY
		go database.NewListener(cfg.GetDSN(), rt.Bus).Run(ctx)
	}

	rt.Engine = game.NewEngine(rt.Store, words.Load(cfg.WordsFile),
		game.WithStartMode(cfg.StartMode),
		game.WithTimeout(cfg.StoreTimeout),
	)

	if rt.Engine.Mode() == game.StartModeDeferred {
		ch, _ := rt.Bus.Subscribe(256)
		go game.NewDealer(rt.Engine, ch, cfg.DealSweepInterval).Run(ctx)
	}

	rt.Cleanup = services.NewCleanupService(rt.Store, cfg.RoomTTL, cfg.CleanupInterval)
	go rt.Cleanup.Start(ctx)

	logger.Info("Game runtime ready", "store", cfg.StoreDriver, "start_mode", rt.Engine.Mode())
	return rt, nil
}

// Close stops event delivery and releases the database.
func (r *Runtime) Close() {
	r.Bus.Close()
	if r.db != nil {
		database.Close(r.db)
	}
}
