package sse

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/hvzgame/internal/api/response"
	"github.com/mcoot/hvzgame/internal/events"
	"github.com/mcoot/hvzgame/internal/model"
)

// Broadcaster forwards game notifications from the event bus to the SSE hub
// of the game they concern
type Broadcaster struct {
	hubManager *HubManager
	bus        *events.Bus
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, bus *events.Bus, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		bus:        bus,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Run consumes notifications for every game until ctx is cancelled or the
// bus is closed
func (b *Broadcaster) Run(ctx context.Context) {
	sub := b.bus.Subscribe("")
	defer sub.Close()

	for {
		select {
		case n, ok := <-sub.C():
			if !ok {
				return
			}
			b.Forward(n)
		case <-ctx.Done():
			return
		}
	}
}

// Forward sends one notification to the watchers of its game. Games nobody
// is watching are skipped.
func (b *Broadcaster) Forward(n model.Notification) {
	hub := b.hubManager.Lookup(n.GameID)
	if hub == nil {
		return
	}

	data, err := json.Marshal(response.NotificationFromModel(n))
	if err != nil {
		b.logger.Error("sse failed to encode notification",
			slog.String("game_id", string(n.GameID)),
			slog.String("type", string(n.Type)),
			slog.Any("error", err))
		return
	}
	hub.Send(n.Type, string(data))
}
