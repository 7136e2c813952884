package eventbus

import (
	"log/slog"
	"sync"

	"parlor-chat/internal/domain"
	"parlor-chat/internal/observability"

	"github.com/google/uuid"
)

// subscriberBuffer bounds the per-subscriber queue. A subscriber that
// falls further behind than this starts losing its oldest undelivered
// events rather than stalling publishers.
const subscriberBuffer = 256

// Bus fans domain events out to live subscribers. Publish is non-blocking:
// a slow consumer is isolated behind its own bounded queue and can never
// delay delivery to other subscribers or to the publisher.
//
// A subscription only observes events published after it was created.
// There is no replay; history belongs to the registry.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string]*Subscription),
	}
}

// Publish delivers ev to every subscription whose filter matches.
// Delivery order per subscriber matches publish order; events to a full
// queue displace the oldest undelivered event.
func (b *Bus) Publish(ev domain.Event) {
	observability.EventsPublishedTotal.WithLabelValues(string(ev.Kind)).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.roomID != "" && sub.roomID != ev.RoomID {
			continue
		}
		sub.deliver(ev)
	}
}

// SubscribeAll returns a live subscription covering every room.
func (b *Bus) SubscribeAll() *Subscription {
	return b.subscribe("")
}

// SubscribeRoom returns a live subscription filtered to one room.
func (b *Bus) SubscribeRoom(roomID string) *Subscription {
	return b.subscribe(roomID)
}

// SubscribeMessages returns a derived stream of just the message payloads
// posted to roomID. It is a filter/project stage composed over a room
// subscription, not a separate delivery mechanism.
func (b *Bus) SubscribeMessages(roomID string) *MessageStream {
	ms := &MessageStream{
		sub: b.SubscribeRoom(roomID),
		ch:  make(chan domain.Message, subscriberBuffer),
	}
	go ms.run()
	return ms
}

func (b *Bus) subscribe(roomID string) *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		bus:    b,
		roomID: roomID,
		ch:     make(chan domain.Event, subscriberBuffer),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	observability.SubscribersActive.Inc()
	return sub
}

// remove detaches and closes a subscription. Closing the channel under
// the write lock cannot race a deliver, which always holds the read lock.
func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
	observability.SubscribersActive.Dec()
}

// Subscription is a live, filtered view of the bus. It is not restartable:
// once closed it delivers nothing further, and closing twice is a no-op.
type Subscription struct {
	id     string
	bus    *Bus
	roomID string
	ch     chan domain.Event
	once   sync.Once
}

// Events returns the receive channel. It is closed when the subscription
// ends; events already queued remain readable until drained.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// Close ends the subscription. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

// deliver enqueues without blocking. When the queue is full the oldest
// event is dropped so the remaining stream stays in publish order.
func (s *Subscription) deliver(ev domain.Event) {
	select {
	case s.ch <- ev:
		return
	default:
	}

	select {
	case old := <-s.ch:
		observability.EventsDroppedTotal.WithLabelValues(string(old.Kind)).Inc()
		slog.Debug("subscriber queue full, dropped oldest event",
			slog.String("room_id", s.roomID),
			slog.String("dropped_kind", string(old.Kind)))
	default:
	}

	select {
	case s.ch <- ev:
	default:
		// Consumer drained concurrently and the queue filled again.
		observability.EventsDroppedTotal.WithLabelValues(string(ev.Kind)).Inc()
	}
}
