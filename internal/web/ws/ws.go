// Package ws streams game notifications to WebSocket clients. Each
// connection holds its own event bus subscription for one game.
package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/hvzgame/internal/api/response"
	"github.com/mcoot/hvzgame/internal/events"
	"github.com/mcoot/hvzgame/internal/metrics"
	"github.com/mcoot/hvzgame/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512
)

// Subscriber opens event bus subscriptions for a game
type Subscriber interface {
	Subscribe(gameID model.GameID) *events.Subscription
}

// Hello is the first message sent on every connection
type Hello struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
}

// Handler upgrades HTTP requests and pumps notifications to the socket
type Handler struct {
	subscriber Subscriber
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(subscriber Subscriber, logger *slog.Logger) *Handler {
	return &Handler{
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Requests are authenticated by bearer token, not cookies
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// Serve upgrades the connection and blocks until the client disconnects or
// the subscription is closed
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, gameID model.GameID, userID model.UserID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		h.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	sub := h.subscriber.Subscribe(gameID)
	defer sub.Close()

	logger := h.logger.With(slog.String("game_id", string(gameID)), slog.String("user_id", string(userID)))
	metrics.StreamClients.WithLabelValues("ws").Inc()
	defer metrics.StreamClients.WithLabelValues("ws").Dec()
	connectedAt := time.Now()
	logger.Info("ws client connected")

	done := make(chan struct{})
	go readPump(conn, done, logger)
	writePump(conn, sub, gameID, done)

	logger.Info("ws client disconnected", slog.Duration("connection_duration", time.Since(connectedAt)))
}

// readPump discards client messages and processes control frames. It closes
// done when the connection fails.
func readPump(conn *websocket.Conn, done chan<- struct{}, logger *slog.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws read error", slog.Any("error", err))
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *events.Subscription, gameID model.GameID, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Hello{Type: "connected", GameID: string(gameID)}); err != nil {
		return
	}

	for {
		select {
		case n, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(response.NotificationFromModel(n)); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
