package events

import (
	"log/slog"
	"sync"

	"github.com/mcoot/hvzgame/internal/metrics"
	"github.com/mcoot/hvzgame/internal/model"
)

// DefaultBufferSize is the per-subscriber queue length used when none is given
const DefaultBufferSize = 64

// Bus fans notifications out to subscribers. Publish never blocks: each
// subscriber has its own buffered channel, and a notification is dropped for
// a subscriber whose buffer is full.
type Bus struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	bufferSize int
	logger     *slog.Logger
}

// NewBus creates a Bus. bufferSize <= 0 uses DefaultBufferSize.
func NewBus(bufferSize int, logger *slog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger.With(slog.String("component", "events")),
	}
}

// Subscription is a handle to a stream of notifications
type Subscription struct {
	bus    *Bus
	gameID model.GameID
	ch     chan model.Notification
	once   sync.Once
}

// C returns the channel notifications are delivered on. It is closed when
// the subscription is closed.
func (s *Subscription) C() <-chan model.Notification {
	return s.ch
}

// Close removes the subscription from the bus. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
	})
}

// Subscribe registers a subscriber for notifications about gameID, or about
// every game when gameID is empty.
func (b *Bus) Subscribe(gameID model.GameID) *Subscription {
	sub := &Subscription{
		bus:    b,
		gameID: gameID,
		ch:     make(chan model.Notification, b.bufferSize),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()

	metrics.Subscribers.Inc()
	b.logger.Debug("subscriber added",
		slog.String("game_id", string(gameID)),
		slog.Int("total_subscribers", count))
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	if _, ok := b.subs[sub]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
	count := len(b.subs)
	b.mu.Unlock()

	metrics.Subscribers.Dec()
	b.logger.Debug("subscriber removed",
		slog.String("game_id", string(sub.gameID)),
		slog.Int("total_subscribers", count))
}

// Publish delivers n to every matching subscriber without blocking
func (b *Bus) Publish(n model.Notification) {
	metrics.NotificationsPublishedTotal.WithLabelValues(string(n.Type)).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for sub := range b.subs {
		if sub.gameID != "" && sub.gameID != n.GameID {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		metrics.NotificationsDroppedTotal.WithLabelValues(string(n.Type)).Add(float64(dropped))
		b.logger.Warn("notification dropped - subscriber buffer full",
			slog.String("type", string(n.Type)),
			slog.String("game_id", string(n.GameID)),
			slog.Int("dropped", dropped))
	}
}

// SubscriberCount returns the number of open subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription
func (b *Bus) Close() {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Close()
	}
}
