// Package notify is the typed publish/subscribe channel that keeps
// independently held views consistent after turbine create/update/delete.
package notify

import (
	"log/slog"
	"sync"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
)

// DefaultDedupWindow is how many recent event ids the bus remembers.
const DefaultDedupWindow = 1024

// Publisher accepts notifications for fan-out.
type Publisher interface {
	Publish(n domain.Notification) bool
}

// Bus fans notifications out to every subscriber in publish order.
// Notifications whose event id was seen recently are dropped.
type Bus struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	seen   map[string]struct{}
	order  []string // ring of remembered event ids
	next   int
	closed bool
}

// NewBus creates a bus remembering up to dedupWindow event ids.
func NewBus(dedupWindow int, logger *slog.Logger, metrics *observability.Metrics) *Bus {
	if dedupWindow <= 0 {
		dedupWindow = DefaultDedupWindow
	}
	return &Bus{
		logger:  logger,
		metrics: metrics,
		subs:    make(map[*Subscription]struct{}),
		seen:    make(map[string]struct{}, dedupWindow),
		order:   make([]string, dedupWindow),
	}
}

// Publish delivers n to every subscriber. It never blocks: a subscriber whose
// buffer is full misses the notification. Returns false when n was a
// duplicate, invalid, or the bus is closed.
func (b *Bus) Publish(n domain.Notification) bool {
	if err := n.Validate(); err != nil {
		b.logger.Warn("dropping invalid notification", "error", err, "event_id", n.EventID)
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	if n.EventID != "" {
		if _, dup := b.seen[n.EventID]; dup {
			b.metrics.NotificationsDuplicate.Inc()
			return false
		}
		b.remember(n.EventID)
	}

	b.metrics.NotificationsPublished.WithLabelValues(string(n.Kind)).Inc()
	for sub := range b.subs {
		select {
		case sub.ch <- n:
		default:
			b.metrics.NotificationsDropped.Inc()
			b.logger.Warn("subscriber buffer full, notification dropped",
				"subscriber", sub.name,
				"kind", n.Kind,
				"turbine_id", n.Turbine.ID,
			)
		}
	}
	return true
}

func (b *Bus) remember(id string) {
	if old := b.order[b.next]; old != "" {
		delete(b.seen, old)
	}
	b.order[b.next] = id
	b.seen[id] = struct{}{}
	b.next = (b.next + 1) % len(b.order)
}

// Subscribe registers a subscriber with the given channel buffer. The name
// only appears in logs.
func (b *Bus) Subscribe(name string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{name: name, ch: make(chan domain.Notification, buffer), bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Close unsubscribes everyone and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.done = true
		close(sub.ch)
	}
	b.subs = nil
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.done {
		return
	}
	sub.done = true
	delete(b.subs, sub)
	close(sub.ch)
}

// Subscription receives notifications until closed.
type Subscription struct {
	name string
	ch   chan domain.Notification
	bus  *Bus
	done bool // guarded by bus.mu
}

// C returns the delivery channel. It is closed when the subscription or the
// bus is closed.
func (s *Subscription) C() <-chan domain.Notification {
	return s.ch
}

// Close stops delivery. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}
