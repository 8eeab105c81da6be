package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/hvzgame/internal/api/handler"
	"github.com/mcoot/hvzgame/internal/api/middleware"
	"github.com/mcoot/hvzgame/internal/api/response"
	"github.com/mcoot/hvzgame/internal/services/game"
	"github.com/mcoot/hvzgame/internal/services/org"
	"github.com/mcoot/hvzgame/internal/services/user"
	"github.com/mcoot/hvzgame/internal/web/sse"
	"github.com/mcoot/hvzgame/internal/web/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	UserService *user.Service
	Games       *game.Repository
	Orgs        *org.Repository
	HubManager  *sse.HubManager
	WSHandler   *ws.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	userHandler := handler.NewUserHandler(cfg.UserService, cfg.Games)
	gameHandler := handler.NewGameHandler(cfg.Games, cfg.Orgs)
	orgHandler := handler.NewOrgHandler(cfg.Orgs)
	streamHandler := handler.NewStreamHandler(cfg.Games, cfg.HubManager, cfg.WSHandler)

	authMiddleware := middleware.Auth(cfg.UserService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Public routes
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/users", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/token", userHandler.Token).Methods(http.MethodPost)

	// Everything below requires a bearer token
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/users/me", userHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/users/me/games", userHandler.MyGames).Methods(http.MethodGet)

	games := protected.PathPrefix("/games").Subrouter()
	games.HandleFunc("", gameHandler.Create).Methods(http.MethodPost)
	games.HandleFunc("/by-name/{name}", gameHandler.GetByName).Methods(http.MethodGet)
	games.HandleFunc("/{id}", gameHandler.Get).Methods(http.MethodGet)

	mod := gameHandler.ModeratorOnly
	selfOrMod := gameHandler.ModeratorOrSelf

	games.HandleFunc("/{id}/players", gameHandler.Join).Methods(http.MethodPost)
	games.HandleFunc("/{id}/players/by-game-id/{player_game_id}", gameHandler.GetPlayerByGameID).Methods(http.MethodGet)
	games.HandleFunc("/{id}/players/{user_id}", gameHandler.GetPlayer).Methods(http.MethodGet)
	games.HandleFunc("/{id}/players/{user_id}", selfOrMod(gameHandler.RemovePlayer)).Methods(http.MethodDelete)
	games.HandleFunc("/{id}/players/{user_id}/role", mod(gameHandler.SetRole)).Methods(http.MethodPut)

	games.HandleFunc("/{id}/start", mod(gameHandler.Start)).Methods(http.MethodPost)
	games.HandleFunc("/{id}/pause", mod(gameHandler.Pause)).Methods(http.MethodPost)
	games.HandleFunc("/{id}/resume", mod(gameHandler.Resume)).Methods(http.MethodPost)
	games.HandleFunc("/{id}/end", mod(gameHandler.End)).Methods(http.MethodPost)
	games.HandleFunc("/{id}/status", mod(gameHandler.SetStatus)).Methods(http.MethodPut)
	games.HandleFunc("/{id}/active", mod(gameHandler.SetActive)).Methods(http.MethodPut)

	games.HandleFunc("/{id}/tags", gameHandler.Tag).Methods(http.MethodPost)
	games.HandleFunc("/{id}/log", gameHandler.EventLog).Methods(http.MethodGet)

	games.HandleFunc("/{id}/oz-pool", gameHandler.JoinOzPool).Methods(http.MethodPost)
	games.HandleFunc("/{id}/oz-pool/draw", mod(gameHandler.DrawOzs)).Methods(http.MethodPost)
	games.HandleFunc("/{id}/oz-pool/{user_id}", mod(gameHandler.AddToOzPool)).Methods(http.MethodPut)
	games.HandleFunc("/{id}/oz-pool/{user_id}", selfOrMod(gameHandler.RemoveFromOzPool)).Methods(http.MethodDelete)

	games.HandleFunc("/{id}/settings/oz-max-tags", gameHandler.GetOzTagCount).Methods(http.MethodGet)
	games.HandleFunc("/{id}/settings/oz-max-tags", mod(gameHandler.SetOzTagCount)).Methods(http.MethodPut)
	games.HandleFunc("/{id}/settings/default-role", mod(gameHandler.SetDefaultRole)).Methods(http.MethodPut)
	games.HandleFunc("/{id}/settings/oz-passcode", mod(gameHandler.SetOzPasscode)).Methods(http.MethodPut, http.MethodDelete)

	games.HandleFunc("/{id}/events", streamHandler.SSE).Methods(http.MethodGet)
	games.HandleFunc("/{id}/ws", streamHandler.WebSocket).Methods(http.MethodGet)

	orgs := protected.PathPrefix("/orgs").Subrouter()
	orgs.HandleFunc("", orgHandler.Create).Methods(http.MethodPost)
	orgs.HandleFunc("/{id}", orgHandler.Get).Methods(http.MethodGet)
	orgs.HandleFunc("/{id}/admins", orgHandler.AddAdmin).Methods(http.MethodPost)
	orgs.HandleFunc("/{id}/game", orgHandler.CreateGame).Methods(http.MethodPost)
	orgs.HandleFunc("/{id}/game", orgHandler.GetActiveGame).Methods(http.MethodGet)
	orgs.HandleFunc("/{id}/game", orgHandler.EndActiveGame).Methods(http.MethodDelete)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
