package org

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hvzgame/internal/dependencies/mocks"
	"github.com/mcoot/hvzgame/internal/events"
	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/services/game"
	"github.com/mcoot/hvzgame/internal/storage"
	"github.com/mcoot/hvzgame/internal/storage/memory"
	"github.com/mcoot/hvzgame/internal/testutil"
)

type RepositorySuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	games   *game.Repository
	repo    *Repository
	ctx     context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	bus := events.NewBus(16, testutil.NopLogger())
	s.games = game.NewRepository(s.storage, bus, s.clock, s.random, testutil.NopLogger())
	s.repo = NewRepository(s.storage, s.games, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RepositorySuite) createOrg() *model.Organization {
	org, err := s.repo.CreateOrganization(s.ctx, "Campus HvZ", "admin")
	s.Require().NoError(err)
	return org
}

func (s *RepositorySuite) TestCreateOrganization() {
	s.random.QueueID("org-1")
	org := s.createOrg()

	s.Equal(model.OrgID("org-1"), org.ID)
	s.Equal([]model.UserID{"admin"}, org.Admins)

	stored, err := s.repo.GetOrganization(s.ctx, "org-1")
	s.Require().NoError(err)
	s.Equal("Campus HvZ", stored.Name)

	_, err = s.repo.CreateOrganization(s.ctx, "", "admin")
	s.ErrorIs(err, model.ErrInvalidArgument)
}

func (s *RepositorySuite) TestAddAdmin() {
	org := s.createOrg()

	_, err := s.repo.AddAdmin(s.ctx, org.ID, "mod", "someone")
	s.ErrorIs(err, model.ErrNotOrgAdmin)
	s.Equal(model.KindAuthorization, model.KindOf(err))

	org, err = s.repo.AddAdmin(s.ctx, org.ID, "mod", "admin")
	s.Require().NoError(err)
	s.True(org.IsAdmin("mod"))

	org, err = s.repo.AddAdmin(s.ctx, org.ID, "mod", "admin")
	s.Require().NoError(err)
	s.Len(org.Admins, 2)
}

func (s *RepositorySuite) TestCreateGameRequiresAdmin() {
	org := s.createOrg()

	_, err := s.repo.CreateGame(s.ctx, org.ID, "game", "player", 0)
	s.ErrorIs(err, model.ErrNotOrgAdmin)
	s.Equal(0, s.storage.GameCount())

	_, err = s.repo.CreateGame(s.ctx, "missing", "game", "admin", 0)
	s.ErrorIs(err, model.ErrOrganizationNotFound)
}

func (s *RepositorySuite) TestCreateGameRecordsActiveGame() {
	org := s.createOrg()

	g, err := s.repo.CreateGame(s.ctx, org.ID, "spring", "admin", 4)
	s.Require().NoError(err)
	s.Equal(org.ID, g.OrgID)
	s.Equal(4, g.OzMaxTags)

	stored, err := s.repo.GetOrganization(s.ctx, org.ID)
	s.Require().NoError(err)
	s.Equal(g.ID, stored.ActiveGameID)

	active, err := s.repo.GetActiveGame(s.ctx, org.ID)
	s.Require().NoError(err)
	s.Equal(g.ID, active.ID)
}

func (s *RepositorySuite) TestOneCurrentGamePerOrganization() {
	org := s.createOrg()
	first, err := s.repo.CreateGame(s.ctx, org.ID, "first", "admin", 0)
	s.Require().NoError(err)

	_, err = s.repo.CreateGame(s.ctx, org.ID, "second", "admin", 0)
	s.ErrorIs(err, model.ErrOrgHasActiveGame)
	s.Equal(model.KindConflict, model.KindOf(err))

	// an ended game no longer blocks creation, however it was ended
	_, err = s.games.StartGame(s.ctx, first.ID, "admin")
	s.Require().NoError(err)
	_, err = s.games.EndGame(s.ctx, first.ID, "admin")
	s.Require().NoError(err)

	second, err := s.repo.CreateGame(s.ctx, org.ID, "second", "admin", 0)
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)
}

func (s *RepositorySuite) TestEndActiveGame() {
	org := s.createOrg()
	g, err := s.repo.CreateGame(s.ctx, org.ID, "spring", "admin", 0)
	s.Require().NoError(err)

	// a New game cannot be ended
	_, err = s.repo.EndActiveGame(s.ctx, org.ID, "admin")
	s.ErrorIs(err, model.ErrInvalidStateTransition)

	_, err = s.games.StartGame(s.ctx, g.ID, "admin")
	s.Require().NoError(err)

	_, err = s.repo.EndActiveGame(s.ctx, org.ID, "player")
	s.ErrorIs(err, model.ErrNotOrgAdmin)

	ended, err := s.repo.EndActiveGame(s.ctx, org.ID, "admin")
	s.Require().NoError(err)
	s.Equal(model.GameStatusEnded, ended.Status)

	_, err = s.repo.GetActiveGame(s.ctx, org.ID)
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.repo.EndActiveGame(s.ctx, org.ID, "admin")
	s.ErrorIs(err, model.ErrGameNotFound)
}

// failingReplaceStorage fails every organization update
type failingReplaceStorage struct {
	storage.Storage
	err error
}

func (f *failingReplaceStorage) ReplaceOrganization(context.Context, *model.Organization, int64) error {
	return f.err
}

func (s *RepositorySuite) TestCreateGameDiscardsGameWhenLinkFails() {
	org := s.createOrg()
	writeErr := errors.New("connection reset")
	repo := NewRepository(&failingReplaceStorage{Storage: s.storage, err: writeErr}, s.games, s.clock, s.random, testutil.NopLogger())

	_, err := repo.CreateGame(s.ctx, org.ID, "spring", "admin", 0)
	s.ErrorIs(err, writeErr)

	s.Equal(0, s.storage.GameCount())
	_, err = s.games.GetGameByName(s.ctx, "spring")
	s.ErrorIs(err, model.ErrGameNotFound)

	stored, err := s.repo.GetOrganization(s.ctx, org.ID)
	s.Require().NoError(err)
	s.Empty(stored.ActiveGameID)

	// Nothing is left behind to block a retry
	g, err := s.repo.CreateGame(s.ctx, org.ID, "spring", "admin", 0)
	s.Require().NoError(err)
	s.Equal(org.ID, g.OrgID)
}

func (s *RepositorySuite) TestStaleOrganizationWriteIsRejected() {
	org := s.createOrg()
	s.Equal(int64(1), org.Version)

	updated, err := s.repo.AddAdmin(s.ctx, org.ID, "mod", "admin")
	s.Require().NoError(err)
	s.Equal(int64(2), updated.Version)

	// A writer that loaded version 1 loses to the AddAdmin above
	org.Admins = append(org.Admins, "intruder")
	org.Version = 2
	err = s.storage.ReplaceOrganization(s.ctx, org, 1)
	s.ErrorIs(err, model.ErrConcurrentModification)

	stored, err := s.repo.GetOrganization(s.ctx, org.ID)
	s.Require().NoError(err)
	s.True(stored.IsAdmin("mod"))
	s.False(stored.IsAdmin("intruder"))
}
