package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/hvzgame/internal/api/middleware"
	"github.com/mcoot/hvzgame/internal/api/request"
	"github.com/mcoot/hvzgame/internal/api/response"
	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/services/game"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	games *game.Repository
	orgs  OrgLookup
}

// NewGameHandler creates a new game handler
func NewGameHandler(games *game.Repository, orgs OrgLookup) *GameHandler {
	return &GameHandler{games: games, orgs: orgs}
}

func gameIDFrom(r *http.Request) model.GameID {
	return model.GameID(mux.Vars(r)["id"])
}

func userIDFrom(r *http.Request) model.UserID {
	return model.UserID(mux.Vars(r)["user_id"])
}

// writeGame writes the result of a game mutation
func writeGame(w http.ResponseWriter, status int, g *model.Game, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, status, response.GameFromModel(g))
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.CreateGameRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.games.CreateGame(r.Context(), req.Name, userID, "", req.OzMaxTags)
	writeGame(w, http.StatusCreated, g, err)
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.GetGameByID(r.Context(), gameIDFrom(r))
	writeGame(w, http.StatusOK, g, err)
}

// GetByName handles GET /api/v1/games/by-name/{name}
func (h *GameHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.GetGameByName(r.Context(), mux.Vars(r)["name"])
	writeGame(w, http.StatusOK, g, err)
}

// Join handles POST /api/v1/games/{id}/players
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	g, err := h.games.AddPlayer(r.Context(), gameIDFrom(r), userID)
	writeGame(w, http.StatusCreated, g, err)
}

// RemovePlayer handles DELETE /api/v1/games/{id}/players/{user_id}
func (h *GameHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())
	g, err := h.games.RemovePlayer(r.Context(), gameIDFrom(r), userIDFrom(r), instigator)
	writeGame(w, http.StatusOK, g, err)
}

// GetPlayer handles GET /api/v1/games/{id}/players/{user_id}
func (h *GameHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := h.games.FindPlayerByUserID(r.Context(), gameIDFrom(r), userIDFrom(r))
	writePlayer(w, p, err)
}

// GetPlayerByGameID handles GET /api/v1/games/{id}/players/by-game-id/{player_game_id}
func (h *GameHandler) GetPlayerByGameID(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerGameID(mux.Vars(r)["player_game_id"])
	p, err := h.games.FindPlayerByGameID(r.Context(), gameIDFrom(r), id)
	writePlayer(w, p, err)
}

func writePlayer(w http.ResponseWriter, p *model.Player, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	if p == nil {
		WriteError(w, model.ErrPlayerNotFound)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayerFromModel(p))
}

// SetRole handles PUT /api/v1/games/{id}/players/{user_id}/role
func (h *GameHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())

	var req request.SetRoleRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.games.SetPlayerToRole(r.Context(), gameIDFrom(r), userIDFrom(r), model.Role(req.Role), instigator)
	writeGame(w, http.StatusOK, g, err)
}

type statusChange func(ctx context.Context, gameID model.GameID, instigatorID model.UserID) (*model.Game, error)

// lifecycle adapts a status transition to a handler
func (h *GameHandler) lifecycle(change statusChange) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instigator := middleware.MustGetUserID(r.Context())
		g, err := change(r.Context(), gameIDFrom(r), instigator)
		writeGame(w, http.StatusOK, g, err)
	}
}

// Start handles POST /api/v1/games/{id}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(h.games.StartGame)(w, r)
}

// Pause handles POST /api/v1/games/{id}/pause
func (h *GameHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(h.games.PauseGame)(w, r)
}

// Resume handles POST /api/v1/games/{id}/resume
func (h *GameHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(h.games.ResumeGame)(w, r)
}

// End handles POST /api/v1/games/{id}/end
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(h.games.EndGame)(w, r)
}

// SetStatus handles PUT /api/v1/games/{id}/status
func (h *GameHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())

	var req request.SetStatusRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.games.SetStatus(r.Context(), gameIDFrom(r), model.GameStatus(req.Status), instigator)
	writeGame(w, http.StatusOK, g, err)
}

// SetActive handles PUT /api/v1/games/{id}/active
func (h *GameHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())

	var req request.SetActiveRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.games.SetActive(r.Context(), gameIDFrom(r), *req.Active, instigator)
	writeGame(w, http.StatusOK, g, err)
}

// Tag handles POST /api/v1/games/{id}/tags. The authenticated user is the tagger.
func (h *GameHandler) Tag(w http.ResponseWriter, r *http.Request) {
	tagger := middleware.MustGetUserID(r.Context())

	var req request.LogTagRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.games.LogTag(r.Context(), gameIDFrom(r), tagger, model.PlayerGameID(req.ReceiverPlayerGameID))
	writeGame(w, http.StatusCreated, g, err)
}

// EventLog handles GET /api/v1/games/{id}/log
func (h *GameHandler) EventLog(w http.ResponseWriter, r *http.Request) {
	gameID := gameIDFrom(r)
	entries, err := h.games.GetGameEventLog(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.EventLogFromModel(gameID, entries))
}

// GetOzTagCount handles GET /api/v1/games/{id}/settings/oz-max-tags
func (h *GameHandler) GetOzTagCount(w http.ResponseWriter, r *http.Request) {
	gameID := gameIDFrom(r)
	count, err := h.games.GetOzTagCount(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.OzTagCount{GameID: string(gameID), OzMaxTags: count})
}

// SetOzTagCount handles PUT /api/v1/games/{id}/settings/oz-max-tags
func (h *GameHandler) SetOzTagCount(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())

	var req request.OzTagCountRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.games.SetOzTagCount(r.Context(), gameIDFrom(r), req.OzMaxTags, instigator)
	writeGame(w, http.StatusOK, g, err)
}

// SetDefaultRole handles PUT /api/v1/games/{id}/settings/default-role
func (h *GameHandler) SetDefaultRole(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())

	var req request.DefaultRoleRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.games.SetDefaultRole(r.Context(), gameIDFrom(r), model.Role(req.Role), instigator)
	writeGame(w, http.StatusOK, g, err)
}

// SetOzPasscode handles PUT /api/v1/games/{id}/settings/oz-passcode.
// DELETE on the same path clears the passcode.
func (h *GameHandler) SetOzPasscode(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())

	var passcode string
	if r.Method != http.MethodDelete {
		var req request.PasscodeRequest
		if !decode(w, r, &req) {
			return
		}
		passcode = req.Passcode
	}

	g, err := h.games.SetOzPoolPasscode(r.Context(), gameIDFrom(r), passcode, instigator)
	writeGame(w, http.StatusOK, g, err)
}
