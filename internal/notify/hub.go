// Package notify fans reservation events out to every interested party:
// connected operator dashboards, the message broker, Redis pub/sub and
// e-mail.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/iliyamo/table-reservation/internal/queue"
)

// Subscriber receives published events.
type Subscriber interface {
	Notify(ctx context.Context, ev queue.Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, ev queue.Event) error

func (f SubscriberFunc) Notify(ctx context.Context, ev queue.Event) error { return f(ctx, ev) }

// Hub delivers each event to every current subscriber at most once.
// Delivery is best effort: a failing subscriber is logged and skipped
// and nothing is retried.
type Hub struct {
	log *slog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]entry
}

type entry struct {
	name string
	sub  Subscriber
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log.With(slog.String("component", "notify")), subs: make(map[int]entry)}
}

// Subscribe registers s under name and returns a function that removes
// it again. The returned function is safe to call more than once.
func (h *Hub) Subscribe(name string, s Subscriber) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = entry{name: name, sub: s}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Len reports the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers ev to all subscribers registered at call time.
func (h *Hub) Publish(ctx context.Context, ev queue.Event) {
	h.mu.RLock()
	targets := make([]entry, 0, len(h.subs))
	for _, e := range h.subs {
		targets = append(targets, e)
	}
	h.mu.RUnlock()

	for _, e := range targets {
		if err := e.sub.Notify(ctx, ev); err != nil {
			h.log.WarnContext(ctx, "subscriber failed",
				slog.String("subscriber", e.name),
				slog.String("event", ev.Type),
				slog.Uint64("reservation_id", ev.ReservationID),
				slog.Any("err", err))
		}
	}
}
