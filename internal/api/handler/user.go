package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/hvzgame/internal/api/middleware"
	"github.com/mcoot/hvzgame/internal/api/request"
	"github.com/mcoot/hvzgame/internal/api/response"
	"github.com/mcoot/hvzgame/internal/services/game"
	"github.com/mcoot/hvzgame/internal/services/user"
)

// UserHandler handles user-related endpoints
type UserHandler struct {
	userService *user.Service
	games       *game.Repository
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *user.Service, games *game.Repository) *UserHandler {
	return &UserHandler{
		userService: userService,
		games:       games,
	}
}

// Register handles POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := h.userService.Register(r.Context(), req.FullName, req.Email)
	if err != nil {
		WriteError(w, err)
		return
	}

	token, err := h.userService.IssueToken(r.Context(), u.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromToken(u, token))
}

// Token handles POST /api/v1/users/token
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req request.TokenRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := h.userService.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		WriteError(w, err)
		return
	}

	token, err := h.userService.IssueToken(r.Context(), u.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromToken(u, token))
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	u, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(u))
}

// MyGames handles GET /api/v1/users/me/games?active=true&limit=N
func (h *UserHandler) MyGames(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	limit, err := queryLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	list := h.games.GetGamesWithUser
	if activeOnly {
		list = h.games.GetActiveGamesWithUser
	}
	games, err := list(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameListFromModels(games))
}
