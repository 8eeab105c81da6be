package handler

import (
	"net/http"

	"github.com/mcoot/hvzgame/internal/api/middleware"
	"github.com/mcoot/hvzgame/internal/api/request"
)

// JoinOzPool handles POST /api/v1/games/{id}/oz-pool. The authenticated
// user volunteers with the game's passcode; the body may be omitted when
// the game has none.
func (h *GameHandler) JoinOzPool(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.JoinOzPoolRequest
	if err := request.DecodeOptional(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}

	g, err := h.games.JoinOzPool(r.Context(), gameIDFrom(r), userID, req.Passcode)
	writeGame(w, http.StatusOK, g, err)
}

// AddToOzPool handles PUT /api/v1/games/{id}/oz-pool/{user_id}
func (h *GameHandler) AddToOzPool(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.AddPlayerToOzPool(r.Context(), gameIDFrom(r), userIDFrom(r))
	writeGame(w, http.StatusOK, g, err)
}

// RemoveFromOzPool handles DELETE /api/v1/games/{id}/oz-pool/{user_id}
func (h *GameHandler) RemoveFromOzPool(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.RemovePlayerFromOzPool(r.Context(), gameIDFrom(r), userIDFrom(r))
	writeGame(w, http.StatusOK, g, err)
}

// DrawOzs handles POST /api/v1/games/{id}/oz-pool/draw
func (h *GameHandler) DrawOzs(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())

	var req request.RandomOzsRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.games.RandomOzs(r.Context(), gameIDFrom(r), req.Count, instigator)
	writeGame(w, http.StatusOK, g, err)
}
