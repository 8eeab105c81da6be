package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mcoot/hvzgame/internal/api/middleware"
	"github.com/mcoot/hvzgame/internal/model"
)

// OrgLookup resolves the organization that owns a game
type OrgLookup interface {
	GetOrganization(ctx context.Context, id model.OrgID) (*model.Organization, error)
}

// authorizeModerator returns nil when userID created the game or administers
// the organization that owns it
func (h *GameHandler) authorizeModerator(ctx context.Context, gameID model.GameID, userID model.UserID) error {
	g, err := h.games.GetGameByID(ctx, gameID)
	if err != nil {
		return err
	}
	if g.CreatorID == userID {
		return nil
	}

	if g.OrgID != "" {
		org, err := h.orgs.GetOrganization(ctx, g.OrgID)
		switch {
		case errors.Is(err, model.ErrOrganizationNotFound):
		case err != nil:
			return err
		case org.IsAdmin(userID):
			return nil
		}
	}

	return fmt.Errorf("%w: user %s in game %s", model.ErrNotModerator, userID, gameID)
}

// ModeratorOnly rejects callers who do not moderate the game in the path
func (h *GameHandler) ModeratorOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.MustGetUserID(r.Context())
		if err := h.authorizeModerator(r.Context(), gameIDFrom(r), userID); err != nil {
			WriteError(w, err)
			return
		}
		next(w, r)
	}
}

// ModeratorOrSelf lets a player act on their own {user_id} and otherwise
// requires a moderator
func (h *GameHandler) ModeratorOrSelf(next http.HandlerFunc) http.HandlerFunc {
	moderated := h.ModeratorOnly(next)
	return func(w http.ResponseWriter, r *http.Request) {
		if userIDFrom(r) == middleware.MustGetUserID(r.Context()) {
			next(w, r)
			return
		}
		moderated(w, r)
	}
}
