package sse

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/hvzgame/internal/metrics"
	"github.com/mcoot/hvzgame/internal/model"
)

// gameEvent is one notification queued for a game's watchers
type gameEvent struct {
	kind model.NotificationType
	data string
}

// Hub is the SSE feed for a single game. Events are numbered per game and
// the number is sent as the SSE id. A watcher that cannot keep up is
// disconnected instead of missing an event; it reconnects and reloads the
// game.
type Hub struct {
	gameID model.GameID
	logger *slog.Logger

	mu       sync.RWMutex
	watchers map[*Client]struct{}

	// seq is owned by Run
	seq uint64

	register   chan *Client
	unregister chan *Client
	events     chan gameEvent
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates the feed for a game. Run must be started before use.
func NewHub(gameID model.GameID, logger *slog.Logger) *Hub {
	return &Hub{
		gameID:     gameID,
		logger:     logger.With(slog.String("game_id", string(gameID))),
		watchers:   make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan gameEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run owns the watcher set until Close
func (h *Hub) Run() {
	h.logger.Debug("game feed opened")
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.watchers[c] = struct{}{}
			n := len(h.watchers)
			h.mu.Unlock()
			metrics.StreamClients.WithLabelValues("sse").Inc()
			h.logger.Info("game watcher joined",
				slog.String("user_id", string(c.userID)),
				slog.Int("watchers", n))

		case c := <-h.unregister:
			h.drop(c, "disconnected")

		case ev := <-h.events:
			h.deliver(ev)

		case <-h.done:
			h.mu.Lock()
			n := len(h.watchers)
			for c := range h.watchers {
				close(c.send)
			}
			clear(h.watchers)
			h.mu.Unlock()
			metrics.StreamClients.WithLabelValues("sse").Sub(float64(n))
			h.logger.Debug("game feed closed", slog.Int("disconnected", n))
			return
		}
	}
}

// deliver numbers ev and queues it for every watcher
func (h *Hub) deliver(ev gameEvent) {
	h.seq++
	msg := formatGameEvent(h.seq, string(ev.kind), ev.data)

	var lagging []*Client
	h.mu.RLock()
	for c := range h.watchers {
		select {
		case c.send <- msg:
		default:
			lagging = append(lagging, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range lagging {
		metrics.NotificationsDroppedTotal.WithLabelValues(string(ev.kind)).Inc()
		h.drop(c, "lagging")
	}
}

// drop removes a watcher and ends its stream
func (h *Hub) drop(c *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.watchers[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.watchers, c)
	close(c.send)
	n := len(h.watchers)
	h.mu.Unlock()

	metrics.StreamClients.WithLabelValues("sse").Dec()
	h.logger.Info("game watcher left",
		slog.String("user_id", string(c.userID)),
		slog.String("reason", reason),
		slog.Duration("watched_for", time.Since(c.connectedAt)),
		slog.Int("watchers", n))
}

// Register adds a watcher. It returns false once the feed is closed.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a watcher
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Send queues one notification payload for the game's watchers
func (h *Hub) Send(kind model.NotificationType, data string) {
	select {
	case h.events <- gameEvent{kind: kind, data: data}:
	default:
		metrics.NotificationsDroppedTotal.WithLabelValues(string(kind)).Inc()
		h.logger.Warn("game feed backlog full, event dropped", slog.String("type", string(kind)))
	}
}

// Close ends the feed and every watcher's stream
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of watchers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

// formatGameEvent is formatSSEMessage with the event's per-game sequence id
func formatGameEvent(seq uint64, eventName, data string) []byte {
	return append([]byte("id: "+strconv.FormatUint(seq, 10)+"\n"), formatSSEMessage(eventName, data)...)
}

// formatSSEMessage formats an SSE message. Each line of data gets its own
// "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteByte('\n')
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// HubManager holds the feeds of games that currently have watchers
type HubManager struct {
	mu     sync.Mutex
	feeds  map[model.GameID]*Hub
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		feeds:  make(map[model.GameID]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// ForGame returns the game's feed, opening it on first use
func (m *HubManager) ForGame(gameID model.GameID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.feeds[gameID]; ok {
		return hub
	}
	hub := NewHub(gameID, m.logger)
	m.feeds[gameID] = hub
	go hub.Run()
	return hub
}

// Lookup returns the game's feed, or nil when nobody has opened one
func (m *HubManager) Lookup(gameID model.GameID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feeds[gameID]
}

// Drop closes the game's feed, disconnecting its watchers
func (m *HubManager) Drop(gameID model.GameID) {
	m.mu.Lock()
	hub, ok := m.feeds[gameID]
	delete(m.feeds, gameID)
	m.mu.Unlock()

	if ok {
		hub.Close()
		m.logger.Info("game feed dropped", slog.String("game_id", string(gameID)))
	}
}

// Prune closes feeds nobody is watching
func (m *HubManager) Prune() {
	m.mu.Lock()
	var idle []*Hub
	for id, hub := range m.feeds {
		if hub.ClientCount() == 0 {
			idle = append(idle, hub)
			delete(m.feeds, id)
		}
	}
	m.mu.Unlock()

	for _, hub := range idle {
		hub.Close()
	}
	if len(idle) > 0 {
		m.logger.Info("idle game feeds pruned", slog.Int("pruned", len(idle)))
	}
}

// Close closes every feed
func (m *HubManager) Close() {
	m.mu.Lock()
	feeds := m.feeds
	m.feeds = make(map[model.GameID]*Hub)
	m.mu.Unlock()

	for _, hub := range feeds {
		hub.Close()
	}
}
