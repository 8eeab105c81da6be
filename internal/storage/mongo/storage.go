package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/storage"
)

const (
	collectionUsers = "users"
	collectionGames = "games"
	collectionOrgs  = "organizations"
)

// Storage is a MongoDB implementation of the storage interface. Each game
// and organization is one document; updates replace it whole, filtered on
// the expected version.
type Storage struct {
	client *mongo.Client
	users  *mongo.Collection
	games  *mongo.Collection
	orgs   *mongo.Collection
}

// New connects to MongoDB and ensures the required indexes exist
func New(ctx context.Context, cfg Config) (*Storage, error) {
	client, db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := NewWithDatabase(client, db)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewWithDatabase wraps an already connected database
func NewWithDatabase(client *mongo.Client, db *mongo.Database) *Storage {
	return &Storage{
		client: client,
		users:  db.Collection(collectionUsers),
		games:  db.Collection(collectionGames),
		orgs:   db.Collection(collectionOrgs),
	}
}

// Close disconnects the client
func (s *Storage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.games.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "players.user_id", Value: 1}, {Key: "created_at", Value: 1}}},
	}); err != nil {
		return err
	}

	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrDuplicateEmail
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user model.User
	if err := s.findOne(ctx, s.users, bson.M{"_id": id}, &user, model.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.findOne(ctx, s.users, bson.M{"email": email}, &user, model.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

// Game operations

func (s *Storage) InsertGame(ctx context.Context, game *model.Game) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.games.InsertOne(ctx, game)
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrDuplicateGameName
	}
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	var game model.Game
	if err := s.findOne(ctx, s.games, bson.M{"_id": id}, &game, model.ErrGameNotFound); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *Storage) GetGameByName(ctx context.Context, name string) (*model.Game, error) {
	var game model.Game
	if err := s.findOne(ctx, s.games, bson.M{"name": name}, &game, model.ErrGameNotFound); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *Storage) ReplaceGame(ctx context.Context, game *model.Game, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := replaceVersioned(ctx, s.games, game.ID, game, expectedVersion, model.ErrGameNotFound)
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrDuplicateGameName
	}
	return err
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.games.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return model.ErrGameNotFound
	}
	return nil
}

func (s *Storage) ListGamesWithUser(ctx context.Context, userID model.UserID, activeOnly bool, limit int) ([]*model.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"players.user_id": userID}
	if activeOnly {
		filter["status"] = model.GameStatusActive
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.games.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	games := []*model.Game{}
	if err := cur.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// Organization operations

func (s *Storage) InsertOrganization(ctx context.Context, org *model.Organization) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.orgs.InsertOne(ctx, org)
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrConcurrentModification
	}
	return err
}

func (s *Storage) ReplaceOrganization(ctx context.Context, org *model.Organization, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return replaceVersioned(ctx, s.orgs, org.ID, org, expectedVersion, model.ErrOrganizationNotFound)
}

func (s *Storage) GetOrganization(ctx context.Context, id model.OrgID) (*model.Organization, error) {
	var org model.Organization
	if err := s.findOne(ctx, s.orgs, bson.M{"_id": id}, &org, model.ErrOrganizationNotFound); err != nil {
		return nil, err
	}
	return &org, nil
}

// replaceVersioned replaces the document with id when its version equals
// expectedVersion
func replaceVersioned(ctx context.Context, col *mongo.Collection, id, doc any, expectedVersion int64, notFound error) error {
	res, err := col.ReplaceOne(ctx, bson.M{"_id": id, "version": expectedVersion}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Distinguish a stale version from a missing document
	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return model.ErrConcurrentModification
}

func (s *Storage) findOne(ctx context.Context, col *mongo.Collection, filter bson.M, dst any, notFound error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := col.FindOne(ctx, filter).Decode(dst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return err
}
