package memory

import (
	"context"
	"sync"

	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are cloned on the way in and out so callers never share state
// with the store.
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	emailIndex    map[string]model.UserID
	games         map[model.GameID]*model.Game
	gameNameIndex map[string]model.GameID
	orgs          map[model.OrgID]*model.Organization
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		emailIndex:    make(map[string]model.UserID),
		games:         make(map[model.GameID]*model.Game),
		gameNameIndex: make(map[string]model.GameID),
		orgs:          make(map[model.OrgID]*model.Organization),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.emailIndex[user.Email]; ok && existing != user.ID {
		return model.ErrDuplicateEmail
	}
	u := *user
	s.users[user.ID] = &u
	s.emailIndex[user.Email] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.emailIndex[email]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

// Game operations

func (s *Storage) InsertGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gameNameIndex[game.Name]; ok {
		return model.ErrDuplicateGameName
	}
	s.games[game.ID] = game.Clone()
	s.gameNameIndex[game.Name] = game.ID
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *Storage) GetGameByName(ctx context.Context, name string) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.gameNameIndex[name]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return s.games[id].Clone(), nil
}

func (s *Storage) ReplaceGame(ctx context.Context, game *model.Game, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.games[game.ID]
	if !ok {
		return model.ErrGameNotFound
	}
	if current.Version != expectedVersion {
		return model.ErrConcurrentModification
	}
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return model.ErrGameNotFound
	}
	delete(s.gameNameIndex, game.Name)
	delete(s.games, id)
	return nil
}

func (s *Storage) ListGamesWithUser(ctx context.Context, userID model.UserID, activeOnly bool, limit int) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var games []*model.Game
	for _, game := range s.games {
		if storage.MatchesUserQuery(game, userID, activeOnly) {
			games = append(games, game.Clone())
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
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; ok {
		return model.ErrConcurrentModification
	}
	s.orgs[org.ID] = org.Clone()
	return nil
}

func (s *Storage) ReplaceOrganization(ctx context.Context, org *model.Organization, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orgs[org.ID]
	if !ok {
		return model.ErrOrganizationNotFound
	}
	if current.Version != expectedVersion {
		return model.ErrConcurrentModification
	}
	s.orgs[org.ID] = org.Clone()
	return nil
}

func (s *Storage) GetOrganization(ctx context.Context, id model.OrgID) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, model.ErrOrganizationNotFound
	}
	return org.Clone(), nil
}

// GameCount returns the number of stored games
func (s *Storage) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
