package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mroshb/impostor_bot/internal/events"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

const (
	listenRetryBase = time.Second
	listenRetryMax  = 30 * time.Second
)

// Listener relays PostgreSQL notifications on events.NotifyChannel to a
// publisher. Notifications are issued inside room transactions, so each one
// arrives only after its transaction committed.
type Listener struct {
	dsn string
	pub events.Publisher
}

func NewListener(dsn string, pub events.Publisher) *Listener {
	return &Listener{dsn: dsn, pub: pub}
}

// Run listens until ctx is done, reconnecting with backoff when the
// connection drops. Notifications sent while disconnected are lost.
func (l *Listener) Run(ctx context.Context) {
	delay := listenRetryBase
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			logger.Info("Change listener stopped")
			return
		}

		logger.Error("Change listener disconnected", "error", err, "retry_in", delay.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > listenRetryMax {
			delay = listenRetryMax
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{events.NotifyChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("Change listener connected", "channel", events.NotifyChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(n)
	}
}

func (l *Listener) handle(n *pgconn.Notification) {
	ev, err := DecodeEvent(n.Payload)
	if err != nil {
		logger.Warn("Ignoring malformed notification", "channel", n.Channel, "error", err)
		return
	}
	l.pub.Publish(ev)
}

// DecodeEvent parses a notification payload written by the room store.
func DecodeEvent(payload string) (events.Event, error) {
	var ev events.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.Type == "" || ev.RoomCode == "" {
		return ev, fmt.Errorf("incomplete event %q", payload)
	}
	return ev, nil
}
