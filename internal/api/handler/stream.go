package handler

import (
	"net/http"

	"github.com/mcoot/hvzgame/internal/api/middleware"
	"github.com/mcoot/hvzgame/internal/services/game"
	"github.com/mcoot/hvzgame/internal/web/sse"
	"github.com/mcoot/hvzgame/internal/web/ws"
)

// StreamHandler serves real-time game notifications
type StreamHandler struct {
	games      *game.Repository
	hubManager *sse.HubManager
	ws         *ws.Handler
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(games *game.Repository, hubManager *sse.HubManager, wsHandler *ws.Handler) *StreamHandler {
	return &StreamHandler{
		games:      games,
		hubManager: hubManager,
		ws:         wsHandler,
	}
}

// SSE handles GET /api/v1/games/{id}/events
func (h *StreamHandler) SSE(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	gameID := gameIDFrom(r)

	// Only open hubs for games that exist
	if _, err := h.games.GetGameByID(r.Context(), gameID); err != nil {
		WriteError(w, err)
		return
	}

	sse.ServeSSE(w, r, h.hubManager.ForGame(gameID), userID)
}

// WebSocket handles GET /api/v1/games/{id}/ws
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	gameID := gameIDFrom(r)

	if _, err := h.games.GetGameByID(r.Context(), gameID); err != nil {
		WriteError(w, err)
		return
	}

	h.ws.Serve(w, r, gameID, userID)
}
