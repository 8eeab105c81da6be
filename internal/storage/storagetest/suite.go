// Package storagetest holds the behavioural checks every storage backend
// must pass. Backend packages run Suite against their own implementation.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/storage"
)

// Suite exercises a storage.Storage implementation
type Suite struct {
	suite.Suite

	// NewStorage returns an empty store for each test
	NewStorage func(t *testing.T) storage.Storage

	Store storage.Storage
	Ctx   context.Context
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Store = s.NewStorage(s.T())
	s.Ctx = context.Background()
}

func newGame(id, name string, created time.Time, players ...model.UserID) *model.Game {
	g := &model.Game{
		ID:          model.GameID(id),
		Name:        name,
		CreatorID:   "creator",
		Status:      model.GameStatusNew,
		DefaultRole: model.RoleHuman,
		OzMaxTags:   model.DefaultOzMaxTags,
		CreatedAt:   created,
		UpdatedAt:   created,
		Version:     1,
	}
	for i, p := range players {
		g.Players = append(g.Players, model.Player{
			UserID:       p,
			PlayerGameID: model.PlayerGameID(fmt.Sprintf("%d", 1000+i)),
			Role:         model.RoleHuman,
			JoinedAt:     created,
		})
	}
	g.EventLog = []model.GameEventLog{model.NewGameCreatedEntry(created, "creator", name)}
	return g
}

// User tests

func (s *Suite) TestSaveAndGetUser() {
	user := &model.User{ID: "u1", FullName: "Alice Smith", Email: "alice@example.com", CreatedAt: baseTime}
	s.Require().NoError(s.Store.SaveUser(s.Ctx, user))

	got, err := s.Store.GetUser(s.Ctx, "u1")
	s.Require().NoError(err)
	s.Equal("Alice Smith", got.FullName)

	got, err = s.Store.GetUserByEmail(s.Ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), got.ID)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Store.GetUser(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Store.GetUserByEmail(s.Ctx, "missing@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestSaveUserDuplicateEmail() {
	s.Require().NoError(s.Store.SaveUser(s.Ctx, &model.User{ID: "u1", Email: "a@example.com", CreatedAt: baseTime}))

	err := s.Store.SaveUser(s.Ctx, &model.User{ID: "u2", Email: "a@example.com", CreatedAt: baseTime})
	s.ErrorIs(err, model.ErrDuplicateEmail)

	// Re-saving the owner is fine
	s.NoError(s.Store.SaveUser(s.Ctx, &model.User{ID: "u1", FullName: "Renamed", Email: "a@example.com", CreatedAt: baseTime}))
}

// Game tests

func (s *Suite) TestInsertAndGetGame() {
	game := newGame("g1", "Spring Game", baseTime, "alice", "bob")
	s.Require().NoError(s.Store.InsertGame(s.Ctx, game))

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal("Spring Game", got.Name)
	s.Len(got.Players, 2)
	s.Require().Len(got.EventLog, 1)
	s.Equal(model.EventGameCreated, got.EventLog[0].Kind)
	s.Require().NotNil(got.EventLog[0].GameCreated)
	s.Equal("Spring Game", got.EventLog[0].GameCreated.GameName)
	s.True(baseTime.Equal(got.CreatedAt))

	got, err = s.Store.GetGameByName(s.Ctx, "Spring Game")
	s.Require().NoError(err)
	s.Equal(model.GameID("g1"), got.ID)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.Store.GetGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.Store.GetGameByName(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestInsertGameDuplicateName() {
	s.Require().NoError(s.Store.InsertGame(s.Ctx, newGame("g1", "Same", baseTime)))

	err := s.Store.InsertGame(s.Ctx, newGame("g2", "Same", baseTime))
	s.ErrorIs(err, model.ErrDuplicateGameName)

	_, err = s.Store.GetGame(s.Ctx, "g2")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestReplaceGame() {
	game := newGame("g1", "Game", baseTime, "alice")
	s.Require().NoError(s.Store.InsertGame(s.Ctx, game))

	game.Status = model.GameStatusActive
	game.Version = 2
	s.Require().NoError(s.Store.ReplaceGame(s.Ctx, game, 1))

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusActive, got.Status)
	s.Equal(int64(2), got.Version)
}

func (s *Suite) TestReplaceGameStaleVersion() {
	game := newGame("g1", "Game", baseTime)
	s.Require().NoError(s.Store.InsertGame(s.Ctx, game))

	first := newGame("g1", "Game", baseTime)
	first.Version = 2
	s.Require().NoError(s.Store.ReplaceGame(s.Ctx, first, 1))

	second := newGame("g1", "Game", baseTime)
	second.Status = model.GameStatusEnded
	second.Version = 2
	err := s.Store.ReplaceGame(s.Ctx, second, 1)
	s.ErrorIs(err, model.ErrConcurrentModification)

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusNew, got.Status)
}

func (s *Suite) TestReplaceGameNotFound() {
	err := s.Store.ReplaceGame(s.Ctx, newGame("missing", "Missing", baseTime), 1)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestListGamesWithUser() {
	older := newGame("g1", "Older", baseTime, "alice", "bob")
	newer := newGame("g2", "Newer", baseTime.Add(time.Hour), "alice")
	newer.Status = model.GameStatusActive
	other := newGame("g3", "Other", baseTime, "carol")
	for _, g := range []*model.Game{newer, other, older} {
		s.Require().NoError(s.Store.InsertGame(s.Ctx, g))
	}

	games, err := s.Store.ListGamesWithUser(s.Ctx, "alice", false, 0)
	s.Require().NoError(err)
	s.Require().Len(games, 2)
	s.Equal(model.GameID("g1"), games[0].ID)
	s.Equal(model.GameID("g2"), games[1].ID)

	games, err = s.Store.ListGamesWithUser(s.Ctx, "alice", true, 0)
	s.Require().NoError(err)
	s.Require().Len(games, 1)
	s.Equal(model.GameID("g2"), games[0].ID)

	games, err = s.Store.ListGamesWithUser(s.Ctx, "alice", false, 1)
	s.Require().NoError(err)
	s.Require().Len(games, 1)
	s.Equal(model.GameID("g1"), games[0].ID)

	games, err = s.Store.ListGamesWithUser(s.Ctx, "nobody", false, 0)
	s.Require().NoError(err)
	s.Empty(games)
}

// Organization tests

func (s *Suite) TestInsertAndReplaceOrganization() {
	org := &model.Organization{
		ID:        "org1",
		Name:      "Campus HvZ",
		CreatorID: "alice",
		Admins:    []model.UserID{"alice"},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
		Version:   1,
	}
	s.Require().NoError(s.Store.InsertOrganization(s.Ctx, org))
	s.ErrorIs(s.Store.InsertOrganization(s.Ctx, org), model.ErrConcurrentModification)

	org.ActiveGameID = "g1"
	org.Version = 2
	s.Require().NoError(s.Store.ReplaceOrganization(s.Ctx, org, 1))

	got, err := s.Store.GetOrganization(s.Ctx, "org1")
	s.Require().NoError(err)
	s.Equal("Campus HvZ", got.Name)
	s.Equal(model.GameID("g1"), got.ActiveGameID)
	s.Equal(int64(2), got.Version)
	s.True(got.IsAdmin("alice"))

	// A writer holding the old version loses
	stale := got.Clone()
	stale.ActiveGameID = ""
	stale.Version = 2
	s.ErrorIs(s.Store.ReplaceOrganization(s.Ctx, stale, 1), model.ErrConcurrentModification)

	got, err = s.Store.GetOrganization(s.Ctx, "org1")
	s.Require().NoError(err)
	s.Equal(model.GameID("g1"), got.ActiveGameID)

	missing := &model.Organization{ID: "nope", Version: 2}
	s.ErrorIs(s.Store.ReplaceOrganization(s.Ctx, missing, 1), model.ErrOrganizationNotFound)
}

func (s *Suite) TestDeleteGame() {
	s.Require().NoError(s.Store.InsertGame(s.Ctx, newGame("g1", "Doomed", baseTime, "alice")))

	s.Require().NoError(s.Store.DeleteGame(s.Ctx, "g1"))

	_, err := s.Store.GetGame(s.Ctx, "g1")
	s.ErrorIs(err, model.ErrGameNotFound)
	_, err = s.Store.GetGameByName(s.Ctx, "Doomed")
	s.ErrorIs(err, model.ErrGameNotFound)
	games, err := s.Store.ListGamesWithUser(s.Ctx, "alice", false, 0)
	s.Require().NoError(err)
	s.Empty(games)

	// The name is free again
	s.NoError(s.Store.InsertGame(s.Ctx, newGame("g2", "Doomed", baseTime)))

	s.ErrorIs(s.Store.DeleteGame(s.Ctx, "g1"), model.ErrGameNotFound)
}

func (s *Suite) TestGetOrganizationNotFound() {
	_, err := s.Store.GetOrganization(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrOrganizationNotFound)
}
