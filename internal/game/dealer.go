package game

import (
	"context"
	"time"

	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

// Dealer deals rooms started in deferred mode. Several dealers may consume
// the same events; Engine.Deal only acts on rooms still waiting for a deal.
//
// Besides reacting to room.started events, the dealer sweeps the store for
// started rooms on startup and every interval, which picks up rooms whose
// event was missed (listener reconnects, process restarts).
type Dealer struct {
	engine   *Engine
	events   <-chan events.Event
	interval time.Duration
}

// NewDealer creates a dealer. An interval of zero only sweeps at startup.
func NewDealer(engine *Engine, ch <-chan events.Event, interval time.Duration) *Dealer {
	return &Dealer{engine: engine, events: ch, interval: interval}
}

// Run deals rooms until ctx is done or the event channel closes.
func (d *Dealer) Run(ctx context.Context) {
	logger.Info("Dealer started", "sweep_interval", d.interval.String())
	defer logger.Info("Dealer stopped")

	d.Sweep(ctx)

	var tick <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			d.Sweep(ctx)
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			if ev.Type != events.TypeRoomStarted {
				continue
			}
			d.deal(ctx, ev.RoomCode)
		}
	}
}

// Sweep deals every room left in the started state and returns how many it
// dealt.
func (d *Dealer) Sweep(ctx context.Context) int {
	codes, err := d.engine.PendingDeals(ctx)
	if err != nil {
		logger.Error("Failed to list rooms waiting for a deal", "error", err)
		return 0
	}

	dealt := 0
	for _, code := range codes {
		if d.deal(ctx, code) {
			dealt++
		}
	}
	if dealt > 0 {
		logger.Info("Dealt rooms found by sweep", "count", dealt)
	}
	return dealt
}

func (d *Dealer) deal(ctx context.Context, code string) bool {
	secrets, err := d.engine.Deal(ctx, code)
	if err != nil {
		logger.Error("Failed to deal room", "code", code, "error", err)
		return false
	}
	return secrets != nil
}
