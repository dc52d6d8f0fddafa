// Package events fans store change notifications out to in-process consumers.
package events

import (
	"sync"

	"github.com/mroshb/impostor_bot/pkg/logger"
)

// Event types
const (
	TypeSecretAdded = "secret.added"
	TypeRoomStarted = "room.started"
)

// NotifyChannel is the PostgreSQL LISTEN/NOTIFY channel carrying events.
const NotifyChannel = "impostor_events"

// Event is a single committed change in the room store.
type Event struct {
	Type     string `json:"type"`
	RoomCode string `json:"room"`
	UserID   string `json:"user,omitempty"`
}

// Publisher accepts committed change events.
type Publisher interface {
	Publish(ev Event)
}

// Bus fans events out to subscribers. Publish never blocks: each
// subscriber has its own unbounded queue drained into its channel in order,
// so a slow consumer delays its own events but never loses them.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe returns a channel of future events and a cancel func that
// closes it. buffer sizes the channel; events beyond it wait in the queue.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	sub := newSubscriber(id, buffer)
	b.subs[id] = sub

	return sub.out, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.stop()
	}
}

// Publish queues ev for every subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		sub.push(ev)
	}
}

// Close closes every subscriber channel. Later Publish calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.stop()
		delete(b.subs, id)
	}
}

type subscriber struct {
	id  int
	out chan Event

	mu    sync.Mutex
	queue []Event

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// backlogWarning is the queue length at which a lagging subscriber is logged.
const backlogWarning = 1000

func newSubscriber(id, buffer int) *subscriber {
	s := &subscriber{
		id:   id,
		out:  make(chan Event, buffer),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *subscriber) push(ev Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	backlog := len(s.queue)
	s.mu.Unlock()

	if backlog%backlogWarning == 0 {
		logger.Warn("Event subscriber falling behind", "subscriber", s.id, "queued", backlog)
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves queued events into out until stop is called, then closes out.
func (s *subscriber) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		pending := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, ev := range pending {
			select {
			case s.out <- ev:
			case <-s.done:
				return
			}
		}
		if len(pending) > 0 {
			continue
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
