package storage

import (
	"context"
	"slices"
	"strings"

	"github.com/mcoot/hvzgame/internal/model"
)

// Storage defines the interface for data persistence.
//
// Game and organization writes are whole-document: Insert for new records
// and Replace for updates. Replace is a compare-and-swap on Version; the
// stored version must equal expectedVersion or ErrConcurrentModification is
// returned. On success the stored document carries the Version as given by
// the caller.
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// Game operations
	InsertGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	GetGameByName(ctx context.Context, name string) (*model.Game, error)
	ReplaceGame(ctx context.Context, game *model.Game, expectedVersion int64) error
	// DeleteGame removes a game and releases its name
	DeleteGame(ctx context.Context, id model.GameID) error
	// ListGamesWithUser returns games the user plays in, oldest first.
	// limit <= 0 means unbounded.
	ListGamesWithUser(ctx context.Context, userID model.UserID, activeOnly bool, limit int) ([]*model.Game, error)

	// Organization operations
	// InsertOrganization fails with ErrConcurrentModification if the id is taken
	InsertOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, id model.OrgID) (*model.Organization, error)
	ReplaceOrganization(ctx context.Context, org *model.Organization, expectedVersion int64) error
}

// MatchesUserQuery reports whether a game belongs in a ListGamesWithUser result
func MatchesUserQuery(game *model.Game, userID model.UserID, activeOnly bool) bool {
	if !game.HasPlayer(userID) {
		return false
	}
	return !activeOnly || game.IsActive()
}

// SortGames orders games by creation time, then id, for stable listings
func SortGames(games []*model.Game) {
	slices.SortFunc(games, func(a, b *model.Game) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
}
