package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/hvzgame/internal/dependencies/clock"
	"github.com/mcoot/hvzgame/internal/dependencies/random"
	"github.com/mcoot/hvzgame/internal/events"
	"github.com/mcoot/hvzgame/internal/metrics"
	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/storage"
)

// Repository is the transactional entry point for game state. Every
// mutation loads the game, validates, computes the next value with a pure
// transition, writes it back with a version check and then publishes
// notifications. Mutations on one game id are serialized in-process.
type Repository struct {
	storage storage.Storage
	bus     *events.Bus
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	locks   *gameLocks

	defaultOzMaxTags int
}

// Option configures a Repository
type Option func(*Repository)

// WithDefaultOzMaxTags sets the OZ max tags used when CreateGame is given 0
func WithDefaultOzMaxTags(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.defaultOzMaxTags = n
		}
	}
}

// NewRepository creates a new game Repository
func NewRepository(
	storage storage.Storage,
	bus *events.Bus,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	opts ...Option,
) *Repository {
	r := &Repository{
		storage:          storage,
		bus:              bus,
		clock:            clock,
		random:           random,
		logger:           logger.With(slog.String("component", "game")),
		locks:            newGameLocks(),
		defaultOzMaxTags: model.DefaultOzMaxTags,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe returns a subscription to notifications for gameID, or for all
// games when gameID is empty. Callers must Close it.
func (r *Repository) Subscribe(gameID model.GameID) *events.Subscription {
	return r.bus.Subscribe(gameID)
}

// Creation & lookup

// CreateGame creates a new game in the New status. ozMaxTags of 0 uses the
// repository default.
func (r *Repository) CreateGame(ctx context.Context, name string, creatorID model.UserID, orgID model.OrgID, ozMaxTags int) (game *model.Game, err error) {
	defer r.observe("create_game", time.Now(), &err)

	if name == "" {
		return nil, fmt.Errorf("%w: game name is required", model.ErrInvalidArgument)
	}
	if ozMaxTags < 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidTagCount, ozMaxTags)
	}
	if ozMaxTags == 0 {
		ozMaxTags = r.defaultOzMaxTags
	}

	now := r.clock.Now()
	game = newGame(model.GameID(r.random.ID()), name, creatorID, orgID, ozMaxTags, now)

	if err := r.storage.InsertGame(ctx, game); err != nil {
		if !errors.Is(err, model.ErrDuplicateGameName) {
			r.logger.Error("failed to insert game",
				slog.String("game_id", string(game.ID)),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	r.logger.Info("game created",
		slog.String("game_id", string(game.ID)),
		slog.String("name", name),
		slog.String("creator_id", string(creatorID)),
		slog.String("org_id", string(orgID)))

	r.publish(game, []model.Notification{{
		Type:         model.NotifyGameCreated,
		Timestamp:    now,
		InstigatorID: creatorID,
	}})
	return game.Clone(), nil
}

// FindGameByID returns the game, or nil when no game has that id
func (r *Repository) FindGameByID(ctx context.Context, id model.GameID) (*model.Game, error) {
	if id == "" {
		return nil, nil
	}
	return findOrNil(r.storage.GetGame(ctx, id))
}

// FindGameByName returns the game, or nil when no game has that name
func (r *Repository) FindGameByName(ctx context.Context, name string) (*model.Game, error) {
	if name == "" {
		return nil, nil
	}
	return findOrNil(r.storage.GetGameByName(ctx, name))
}

func findOrNil(game *model.Game, err error) (*model.Game, error) {
	if errors.Is(err, model.ErrGameNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return game, nil
}

// GetGameByID returns the game or ErrGameNotFound
func (r *Repository) GetGameByID(ctx context.Context, id model.GameID) (*model.Game, error) {
	game, err := r.FindGameByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("%w: id %q", model.ErrGameNotFound, id)
	}
	return game, nil
}

// GetGameByName returns the game or ErrGameNotFound
func (r *Repository) GetGameByName(ctx context.Context, name string) (*model.Game, error) {
	game, err := r.FindGameByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("%w: name %q", model.ErrGameNotFound, name)
	}
	return game, nil
}

// DiscardGame deletes a game that never started. It backs out a creation
// whose follow-up bookkeeping failed.
func (r *Repository) DiscardGame(ctx context.Context, id model.GameID) (err error) {
	defer r.observe("discard_game", time.Now(), &err)

	unlock := r.locks.lock(id)
	defer unlock()

	game, err := r.GetGameByID(ctx, id)
	if err != nil {
		return err
	}
	if game.Status != model.GameStatusNew {
		return fmt.Errorf("%w: cannot discard %s game %s", model.ErrInvalidStateTransition, game.Status, id)
	}
	if err := r.storage.DeleteGame(ctx, id); err != nil {
		return err
	}

	r.logger.Warn("game discarded",
		slog.String("game_id", string(id)),
		slog.String("name", game.Name))
	return nil
}

// Player membership

// AddPlayer joins userID to the game with the game's default role and a
// fresh per-game id
func (r *Repository) AddPlayer(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Game, error) {
	return r.mutate(ctx, "add_player", gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		next, player, err := addPlayer(g, userID, r.random, now)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{{
			Type:         model.NotifyPlayerJoinedGame,
			InstigatorID: userID,
			UserID:       userID,
			Role:         player.Role,
		}}, nil
	})
}

// RemovePlayer removes userID from the game and from the OZ pool
func (r *Repository) RemovePlayer(ctx context.Context, gameID model.GameID, userID, instigatorID model.UserID) (*model.Game, error) {
	return r.mutate(ctx, "remove_player", gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		next, err := removePlayer(g, userID, instigatorID, now)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{{
			Type:         model.NotifyPlayerLeftGame,
			InstigatorID: instigatorID,
			UserID:       userID,
		}}, nil
	})
}

// FindPlayerByUserID returns the user's player in the game, or nil if the
// user is not playing. A missing game is an error.
func (r *Repository) FindPlayerByUserID(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	game, err := r.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if p := game.PlayerByUserID(userID); p != nil {
		player := *p
		return &player, nil
	}
	return nil, nil
}

// FindPlayerByGameID returns the player with the per-game id, or nil. A
// missing game is an error.
func (r *Repository) FindPlayerByGameID(ctx context.Context, gameID model.GameID, playerGameID model.PlayerGameID) (*model.Player, error) {
	game, err := r.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if p := game.PlayerByGameID(playerGameID); p != nil {
		player := *p
		return &player, nil
	}
	return nil, nil
}

// Status transitions

// StartGame moves a New game to Active
func (r *Repository) StartGame(ctx context.Context, gameID model.GameID, instigatorID model.UserID) (*model.Game, error) {
	return r.transition(ctx, "start_game", gameID, instigatorID, func(model.GameStatus) (Action, error) {
		return ActionStart, nil
	})
}

// PauseGame moves an Active game to Paused
func (r *Repository) PauseGame(ctx context.Context, gameID model.GameID, instigatorID model.UserID) (*model.Game, error) {
	return r.transition(ctx, "pause_game", gameID, instigatorID, func(model.GameStatus) (Action, error) {
		return ActionPause, nil
	})
}

// ResumeGame moves a Paused game back to Active
func (r *Repository) ResumeGame(ctx context.Context, gameID model.GameID, instigatorID model.UserID) (*model.Game, error) {
	return r.transition(ctx, "resume_game", gameID, instigatorID, func(model.GameStatus) (Action, error) {
		return ActionResume, nil
	})
}

// EndGame moves an Active or Paused game to Ended
func (r *Repository) EndGame(ctx context.Context, gameID model.GameID, instigatorID model.UserID) (*model.Game, error) {
	return r.transition(ctx, "end_game", gameID, instigatorID, func(model.GameStatus) (Action, error) {
		return ActionEnd, nil
	})
}

// SetActive is the two-state form of the lifecycle: true starts a New game
// or resumes a Paused one, false pauses an Active one.
func (r *Repository) SetActive(ctx context.Context, gameID model.GameID, active bool, instigatorID model.UserID) (*model.Game, error) {
	return r.transition(ctx, "set_active", gameID, instigatorID, func(from model.GameStatus) (Action, error) {
		return actionForActive(from, active), nil
	})
}

// SetStatus moves the game to the requested status along the lifecycle table
func (r *Repository) SetStatus(ctx context.Context, gameID model.GameID, status model.GameStatus, instigatorID model.UserID) (*model.Game, error) {
	return r.transition(ctx, "set_status", gameID, instigatorID, func(from model.GameStatus) (Action, error) {
		return actionForStatus(from, status)
	})
}

func (r *Repository) transition(ctx context.Context, op string, gameID model.GameID, instigatorID model.UserID, pick func(model.GameStatus) (Action, error)) (*model.Game, error) {
	return r.mutate(ctx, op, gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		action, err := pick(g.Status)
		if err != nil {
			return nil, nil, err
		}
		next, err := applyAction(g, action, instigatorID, now)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{
			{Type: model.NotifyGameActiveStatusChanged, InstigatorID: instigatorID, Status: next.Status},
			{Type: model.NotifyGameUpdated, InstigatorID: instigatorID, Status: next.Status},
		}, nil
	})
}

// Roles and tags

// SetPlayerToRole changes a player's role. The tag count is kept.
func (r *Repository) SetPlayerToRole(ctx context.Context, gameID model.GameID, userID model.UserID, role model.Role, instigatorID model.UserID) (*model.Game, error) {
	return r.mutate(ctx, "set_player_role", gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		next, err := setPlayerRole(g, userID, role, instigatorID, now)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{{
			Type:         model.NotifyPlayerRoleChanged,
			InstigatorID: instigatorID,
			UserID:       userID,
			Role:         role,
		}}, nil
	})
}

// LogTag records taggerID tagging the player with receiverGameID. The
// receiver becomes a zombie; an OZ tagger reaching the game's OZ max tags is
// reverted to human in the same write.
func (r *Repository) LogTag(ctx context.Context, gameID model.GameID, taggerID model.UserID, receiverGameID model.PlayerGameID) (*model.Game, error) {
	if string(taggerID) == string(receiverGameID) {
		metrics.OperationsTotal.WithLabelValues("log_tag", model.KindValidation.String()).Inc()
		return nil, fmt.Errorf("%w: tagger %s", model.ErrSelfTag, taggerID)
	}

	var result *tagResult
	game, err := r.mutate(ctx, "log_tag", gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		next, res, err := logTag(g, taggerID, receiverGameID, now)
		if err != nil {
			return nil, nil, err
		}
		result = res

		notes := []model.Notification{{
			Type:         model.NotifyTagLogged,
			InstigatorID: taggerID,
			UserID:       taggerID,
			ReceiverID:   res.receiver.UserID,
			TagCount:     res.tagger.TagCount,
		}}
		if res.ozDemoted {
			notes = append(notes, model.Notification{
				Type:         model.NotifyPlayerRoleChanged,
				InstigatorID: model.SystemMaxTagsInstigator,
				UserID:       taggerID,
				Role:         model.RoleHuman,
			})
		}
		return next, notes, nil
	})
	if err != nil {
		return nil, err
	}

	taggerRole := model.RoleZombie
	if result.taggerWasOz {
		taggerRole = model.RoleOZ
	}
	metrics.TagsTotal.WithLabelValues(string(taggerRole)).Inc()
	r.logger.Info("tag logged",
		slog.String("game_id", string(gameID)),
		slog.String("tagger_id", string(taggerID)),
		slog.String("receiver_id", string(result.receiver.UserID)),
		slog.Int("tagger_tag_count", result.tagger.TagCount))

	if result.ozDemoted {
		metrics.OzDemotionsTotal.Inc()
		r.logger.Info("oz reverted to human after reaching max tags",
			slog.String("game_id", string(gameID)),
			slog.String("user_id", string(taggerID)),
			slog.Int("oz_max_tags", game.OzMaxTags))
	}
	return game, nil
}

// OZ pool

// AddPlayerToOzPool adds a player to the OZ pool. Adding a member already
// in the pool is an error.
func (r *Repository) AddPlayerToOzPool(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Game, error) {
	return r.mutate(ctx, "add_to_oz_pool", gameID, func(g *model.Game, _ time.Time) (*model.Game, []model.Notification, error) {
		next, err := addToOzPool(g, userID)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{{Type: model.NotifyPlayerJoinedOzPool, InstigatorID: userID, UserID: userID}}, nil
	})
}

// JoinOzPool is the player-facing pool join; it requires the game's OZ
// passcode when one is set.
func (r *Repository) JoinOzPool(ctx context.Context, gameID model.GameID, userID model.UserID, passcode string) (*model.Game, error) {
	return r.mutate(ctx, "join_oz_pool", gameID, func(g *model.Game, _ time.Time) (*model.Game, []model.Notification, error) {
		next, err := joinOzPool(g, userID, passcode)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{{Type: model.NotifyPlayerJoinedOzPool, InstigatorID: userID, UserID: userID}}, nil
	})
}

// RemovePlayerFromOzPool removes a member from the OZ pool. Removing a
// non-member is an error.
func (r *Repository) RemovePlayerFromOzPool(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Game, error) {
	return r.mutate(ctx, "remove_from_oz_pool", gameID, func(g *model.Game, _ time.Time) (*model.Game, []model.Notification, error) {
		next, err := removeFromOzPool(g, userID)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{{Type: model.NotifyPlayerLeftOzPool, InstigatorID: userID, UserID: userID}}, nil
	})
}

// SetOzPoolPasscode sets the passcode JoinOzPool checks. An empty passcode
// removes the requirement.
func (r *Repository) SetOzPoolPasscode(ctx context.Context, gameID model.GameID, passcode string, instigatorID model.UserID) (*model.Game, error) {
	hash, err := hashPasscode(passcode)
	if err != nil {
		return nil, err
	}

	return r.mutate(ctx, "set_oz_passcode", gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		next := setOzPasscodeHash(g, hash, instigatorID, now)
		return next, []model.Notification{{Type: model.NotifyGameSettingsChanged, InstigatorID: instigatorID}}, nil
	})
}

// RandomOzs picks count distinct members of the OZ pool at random, makes
// them OZs and removes them from the pool
func (r *Repository) RandomOzs(ctx context.Context, gameID model.GameID, count int, instigatorID model.UserID) (*model.Game, error) {
	var chosen []model.UserID
	game, err := r.mutate(ctx, "random_ozs", gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		next, picked, err := randomOzs(g, count, instigatorID, r.random, now)
		if err != nil {
			return nil, nil, err
		}
		chosen = picked
		return next, []model.Notification{{
			Type:         model.NotifyRandomOzsSet,
			InstigatorID: instigatorID,
			OzIDs:        picked,
		}}, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("random ozs selected",
		slog.String("game_id", string(gameID)),
		slog.String("instigator_id", string(instigatorID)),
		slog.Any("oz_ids", chosen))
	return game, nil
}

// SetOzTagCount sets the tag count at which an OZ reverts to human
func (r *Repository) SetOzTagCount(ctx context.Context, gameID model.GameID, count int, instigatorID model.UserID) (*model.Game, error) {
	return r.mutate(ctx, "set_oz_tag_count", gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		next, err := setOzMaxTags(g, count, instigatorID, now)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{{Type: model.NotifyGameSettingsChanged, InstigatorID: instigatorID, TagCount: count}}, nil
	})
}

// GetOzTagCount returns the game's OZ max tags setting
func (r *Repository) GetOzTagCount(ctx context.Context, gameID model.GameID) (int, error) {
	game, err := r.GetGameByID(ctx, gameID)
	if err != nil {
		return 0, err
	}
	return game.OzMaxTags, nil
}

// SetDefaultRole sets the role given to players who join from now on
func (r *Repository) SetDefaultRole(ctx context.Context, gameID model.GameID, role model.Role, instigatorID model.UserID) (*model.Game, error) {
	return r.mutate(ctx, "set_default_role", gameID, func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error) {
		next, err := setDefaultRole(g, role, instigatorID, now)
		if err != nil {
			return nil, nil, err
		}
		return next, []model.Notification{{Type: model.NotifyGameSettingsChanged, InstigatorID: instigatorID, Role: role}}, nil
	})
}

// Queries

// GetGamesWithUser lists games the user plays in, oldest first. limit <= 0
// returns all of them.
func (r *Repository) GetGamesWithUser(ctx context.Context, userID model.UserID, limit int) ([]*model.Game, error) {
	return r.storage.ListGamesWithUser(ctx, userID, false, limit)
}

// GetActiveGamesWithUser is GetGamesWithUser restricted to Active games
func (r *Repository) GetActiveGamesWithUser(ctx context.Context, userID model.UserID, limit int) ([]*model.Game, error) {
	return r.storage.ListGamesWithUser(ctx, userID, true, limit)
}

// GetGameEventLog returns the game's event log, oldest entry first
func (r *Repository) GetGameEventLog(ctx context.Context, gameID model.GameID) ([]model.GameEventLog, error) {
	game, err := r.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return game.EventLog, nil
}

// Internals

type mutation func(g *model.Game, now time.Time) (*model.Game, []model.Notification, error)

// mutate runs one read-modify-write unit on a game under its lock and
// publishes fn's notifications once the write has succeeded
func (r *Repository) mutate(ctx context.Context, op string, gameID model.GameID, fn mutation) (game *model.Game, err error) {
	defer r.observe(op, time.Now(), &err)

	unlock := r.locks.lock(gameID)
	game, notes, err := r.applyLocked(ctx, op, gameID, fn)
	unlock()
	if err != nil {
		return nil, err
	}

	r.publish(game, notes)
	return game.Clone(), nil
}

func (r *Repository) applyLocked(ctx context.Context, op string, gameID model.GameID, fn mutation) (*model.Game, []model.Notification, error) {
	current, err := r.storage.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, model.ErrGameNotFound) {
			return nil, nil, fmt.Errorf("%w: id %q", model.ErrGameNotFound, gameID)
		}
		return nil, nil, err
	}

	now := r.clock.Now()
	next, notes, err := fn(current, now)
	if err != nil {
		return nil, nil, err
	}

	next.Version = current.Version + 1
	next.UpdatedAt = now
	if err := r.storage.ReplaceGame(ctx, next, current.Version); err != nil {
		r.logger.Error("failed to save game",
			slog.String("op", op),
			slog.String("game_id", string(gameID)),
			slog.Int64("version", current.Version),
			slog.String("error", err.Error()))
		return nil, nil, err
	}

	for i := range notes {
		notes[i].Timestamp = now
	}

	r.logger.Info("game updated",
		slog.String("op", op),
		slog.String("game_id", string(gameID)),
		slog.Int64("version", next.Version),
		slog.Int("log_length", len(next.EventLog)))
	return next, notes, nil
}

// publish stamps notifications with the persisted game and hands them to the bus
func (r *Repository) publish(game *model.Game, notes []model.Notification) {
	for _, n := range notes {
		n.GameID = game.ID
		n.Game = game
		r.bus.Publish(n)
	}
}

func (r *Repository) observe(op string, start time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = model.KindOf(*err).String()
	}
	metrics.OperationsTotal.WithLabelValues(op, result).Inc()
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
