package org

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/hvzgame/internal/dependencies/clock"
	"github.com/mcoot/hvzgame/internal/dependencies/random"
	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/storage"
)

// Games is the part of the game repository organizations delegate to
type Games interface {
	CreateGame(ctx context.Context, name string, creatorID model.UserID, orgID model.OrgID, ozMaxTags int) (*model.Game, error)
	GetGameByID(ctx context.Context, id model.GameID) (*model.Game, error)
	EndGame(ctx context.Context, gameID model.GameID, instigatorID model.UserID) (*model.Game, error)
	DiscardGame(ctx context.Context, id model.GameID) error
}

// Repository manages organizations and gates game creation on them: only
// admins may create a game, and an organization has at most one current game.
// Organization writes are version checked, so concurrent writers in any
// process see ErrConcurrentModification rather than overwriting each other.
type Repository struct {
	storage storage.Storage
	games   Games
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewRepository creates a new organization Repository
func NewRepository(storage storage.Storage, games Games, clock clock.Clock, random random.Random, logger *slog.Logger) *Repository {
	return &Repository{
		storage: storage,
		games:   games,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "org")),
	}
}

// CreateOrganization creates an organization administered by its creator
func (r *Repository) CreateOrganization(ctx context.Context, name string, creatorID model.UserID) (*model.Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", model.ErrInvalidArgument)
	}
	if creatorID == "" {
		return nil, fmt.Errorf("%w: creator is required", model.ErrInvalidArgument)
	}

	now := r.clock.Now()
	org := &model.Organization{
		ID:        model.OrgID(r.random.ID()),
		Name:      name,
		CreatorID: creatorID,
		Admins:    []model.UserID{creatorID},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := r.storage.InsertOrganization(ctx, org); err != nil {
		return nil, err
	}

	r.logger.Info("organization created",
		slog.String("org_id", string(org.ID)),
		slog.String("creator_id", string(creatorID)))
	return org, nil
}

// GetOrganization returns an organization by id
func (r *Repository) GetOrganization(ctx context.Context, id model.OrgID) (*model.Organization, error) {
	return r.storage.GetOrganization(ctx, id)
}

// AddAdmin grants admin rights to userID. Only an existing admin may do this.
func (r *Repository) AddAdmin(ctx context.Context, orgID model.OrgID, userID, instigatorID model.UserID) (*model.Organization, error) {
	org, err := r.loadAsAdmin(ctx, orgID, instigatorID)
	if err != nil {
		return nil, err
	}
	if org.IsAdmin(userID) {
		return org, nil
	}

	org.Admins = append(org.Admins, userID)
	if err := r.replace(ctx, org); err != nil {
		return nil, err
	}

	r.logger.Info("organization admin added",
		slog.String("org_id", string(orgID)),
		slog.String("user_id", string(userID)),
		slog.String("instigator_id", string(instigatorID)))
	return org, nil
}

// CreateGame creates a game owned by the organization and records it as the
// organization's current game
func (r *Repository) CreateGame(ctx context.Context, orgID model.OrgID, name string, userID model.UserID, ozMaxTags int) (*model.Game, error) {
	org, err := r.loadAsAdmin(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	current, err := r.currentGame(ctx, org)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, fmt.Errorf("%w: game %s is %s", model.ErrOrgHasActiveGame, current.ID, current.Status)
	}

	game, err := r.games.CreateGame(ctx, name, userID, orgID, ozMaxTags)
	if err != nil {
		return nil, err
	}

	// The game only counts as created once the organization points at it
	org.ActiveGameID = game.ID
	if err := r.replace(ctx, org); err != nil {
		r.logger.Error("failed to record organization game",
			slog.String("org_id", string(orgID)),
			slog.String("game_id", string(game.ID)),
			slog.String("error", err.Error()))
		if derr := r.games.DiscardGame(ctx, game.ID); derr != nil {
			r.logger.Error("failed to discard unlinked organization game",
				slog.String("org_id", string(orgID)),
				slog.String("game_id", string(game.ID)),
				slog.String("error", derr.Error()))
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}

	r.logger.Info("organization game created",
		slog.String("org_id", string(orgID)),
		slog.String("game_id", string(game.ID)),
		slog.String("user_id", string(userID)))
	return game, nil
}

// GetActiveGame returns the organization's current (not ended) game, or
// ErrGameNotFound when it has none
func (r *Repository) GetActiveGame(ctx context.Context, orgID model.OrgID) (*model.Game, error) {
	org, err := r.storage.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	game, err := r.currentGame(ctx, org)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("%w: organization %s has no current game", model.ErrGameNotFound, orgID)
	}
	return game, nil
}

// EndActiveGame ends the organization's current game and clears it
func (r *Repository) EndActiveGame(ctx context.Context, orgID model.OrgID, userID model.UserID) (*model.Game, error) {
	org, err := r.loadAsAdmin(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if org.ActiveGameID == "" {
		return nil, fmt.Errorf("%w: organization %s has no current game", model.ErrGameNotFound, orgID)
	}

	game, err := r.games.EndGame(ctx, org.ActiveGameID, userID)
	if err != nil {
		return nil, err
	}

	org.ActiveGameID = ""
	if err := r.replace(ctx, org); err != nil {
		return nil, err
	}
	return game, nil
}

// replace writes org back over the version it was loaded at
func (r *Repository) replace(ctx context.Context, org *model.Organization) error {
	expected := org.Version
	org.Version++
	org.UpdatedAt = r.clock.Now()
	return r.storage.ReplaceOrganization(ctx, org, expected)
}

func (r *Repository) loadAsAdmin(ctx context.Context, orgID model.OrgID, userID model.UserID) (*model.Organization, error) {
	org, err := r.storage.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.IsAdmin(userID) {
		return nil, fmt.Errorf("%w: user %s in organization %s", model.ErrNotOrgAdmin, userID, orgID)
	}
	return org, nil
}

// currentGame resolves the organization's recorded game, treating an ended
// or deleted game as no game
func (r *Repository) currentGame(ctx context.Context, org *model.Organization) (*model.Game, error) {
	if org.ActiveGameID == "" {
		return nil, nil
	}
	game, err := r.games.GetGameByID(ctx, org.ActiveGameID)
	if errors.Is(err, model.ErrGameNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !game.IsCurrent() {
		return nil, nil
	}
	return game, nil
}
