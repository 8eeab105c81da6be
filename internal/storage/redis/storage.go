package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Game and organization replacement use WATCH/MULTI so concurrent writers
// from other processes are detected through the version check.
type Storage struct {
	client *redis.Client
	keys   keys
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		keys:   keys{prefix: prefix},
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	idxKey := s.keys.emailIndex(user.Email)
	claimed, err := s.client.SetNX(ctx, idxKey, string(user.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		owner, err := s.client.Get(ctx, idxKey).Result()
		if err != nil {
			return err
		}
		if owner != string(user.ID) {
			return model.ErrDuplicateEmail
		}
	}

	return s.client.Set(ctx, s.keys.user(user.ID), data, 0).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user model.User
	if err := s.getJSON(ctx, s.keys.user(id), &user, model.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	id, err := s.client.Get(ctx, s.keys.emailIndex(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(id))
}

// Game operations

func (s *Storage) InsertGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	// The name index doubles as the uniqueness lock
	nameKey := s.keys.gameNameIndex(game.Name)
	claimed, err := s.client.SetNX(ctx, nameKey, string(game.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrDuplicateGameName
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.game(game.ID), data, 0)
	pipe.SAdd(ctx, s.keys.allGames(), string(game.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		_ = s.client.Del(ctx, nameKey).Err()
		return err
	}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	var game model.Game
	if err := s.getJSON(ctx, s.keys.game(id), &game, model.ErrGameNotFound); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *Storage) GetGameByName(ctx context.Context, name string) (*model.Game, error) {
	id, err := s.client.Get(ctx, s.keys.gameNameIndex(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}
	return s.GetGame(ctx, model.GameID(id))
}

func (s *Storage) ReplaceGame(ctx context.Context, game *model.Game, expectedVersion int64) error {
	return s.replaceVersioned(ctx, s.keys.game(game.ID), game, expectedVersion, model.ErrGameNotFound)
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.game(id))
	pipe.SRem(ctx, s.keys.allGames(), string(id))
	pipe.Del(ctx, s.keys.gameNameIndex(game.Name))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListGamesWithUser(ctx context.Context, userID model.UserID, activeOnly bool, limit int) ([]*model.Game, error) {
	ids, err := s.client.SMembers(ctx, s.keys.allGames()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Game{}, nil
	}

	gameKeys := make([]string, len(ids))
	for i, id := range ids {
		gameKeys[i] = s.keys.game(model.GameID(id))
	}

	values, err := s.client.MGet(ctx, gameKeys...).Result()
	if err != nil {
		return nil, err
	}

	games := make([]*model.Game, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // key vanished between SMEMBERS and MGET
		}
		var game model.Game
		if err := json.Unmarshal([]byte(str), &game); err != nil {
			return nil, err
		}
		if storage.MatchesUserQuery(&game, userID, activeOnly) {
			games = append(games, &game)
		}
	}

	storage.SortGames(games)
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

// Organization operations

func (s *Storage) InsertOrganization(ctx context.Context, org *model.Organization) error {
	data, err := json.Marshal(org)
	if err != nil {
		return err
	}
	claimed, err := s.client.SetNX(ctx, s.keys.org(org.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrConcurrentModification
	}
	return nil
}

func (s *Storage) ReplaceOrganization(ctx context.Context, org *model.Organization, expectedVersion int64) error {
	return s.replaceVersioned(ctx, s.keys.org(org.ID), org, expectedVersion, model.ErrOrganizationNotFound)
}

func (s *Storage) GetOrganization(ctx context.Context, id model.OrgID) (*model.Organization, error) {
	var org model.Organization
	if err := s.getJSON(ctx, s.keys.org(id), &org, model.ErrOrganizationNotFound); err != nil {
		return nil, err
	}
	return &org, nil
}

// replaceVersioned overwrites key with v under WATCH when the stored
// document's version equals expectedVersion
func (s *Storage) replaceVersioned(ctx context.Context, key string, v any, expectedVersion int64, notFound error) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return notFound
			}
			return err
		}

		var current struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode stored %s: %w", key, err)
		}
		if current.Version != expectedVersion {
			return model.ErrConcurrentModification
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrConcurrentModification
	}
	return err
}

// getJSON loads key into dst, returning notFound when the key is missing
func (s *Storage) getJSON(ctx context.Context, key string, dst any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, dst)
}
