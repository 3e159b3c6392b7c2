package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/domain"
	"github.com/soyeahso/cpbot/internal/logging"
)

// Collection names.
const (
	usersCollection    = "users"
	channelsCollection = "channels"
)

// MongoStore implements Store on MongoDB. Users are keyed by discord_id and
// channels by id.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	channels *mongo.Collection
	log      *logging.Logger
}

// OpenMongo connects to uri and verifies the connection with a ping.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration, log *logging.Logger) (*MongoStore, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := NewMongoStore(client.Database(database), log)
	s.client = client
	s.log.Info().Str("database", database).Msg("mongodb connected")
	return s, nil
}

// NewMongoStore wraps an existing database handle. Close does not disconnect
// a client it did not open.
func NewMongoStore(db *mongo.Database, log *logging.Logger) *MongoStore {
	return &MongoStore{
		users:    db.Collection(usersCollection),
		channels: db.Collection(channelsCollection),
		log:      log.Sub("store"),
	}
}

// LoadUsers returns every stored user.
func (s *MongoStore) LoadUsers(ctx context.Context) ([]domain.User, error) {
	cur, err := s.users.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	var users []domain.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	return users, nil
}

// PutUser upserts a user by discord_id.
func (s *MongoStore) PutUser(ctx context.Context, u domain.User) error {
	if u.Profiles == nil {
		u.Profiles = []domain.Profile{}
	}
	_, err := s.users.ReplaceOne(ctx,
		bson.D{{Key: "discord_id", Value: u.DiscordID}},
		u,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving user %s: %w", u.DiscordID, err)
	}
	return nil
}

// LoadChannels returns every stored channel.
func (s *MongoStore) LoadChannels(ctx context.Context) ([]discord.Channel, error) {
	cur, err := s.channels.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}
	var channels []discord.Channel
	if err := cur.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("decoding channels: %w", err)
	}
	return channels, nil
}

// PutChannel upserts a channel by id.
func (s *MongoStore) PutChannel(ctx context.Context, ch discord.Channel) error {
	_, err := s.channels.ReplaceOne(ctx,
		bson.D{{Key: "id", Value: ch.ID}},
		ch,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving channel %s: %w", ch.ID, err)
	}
	return nil
}

// Close disconnects the client if OpenMongo created it.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	s.log.Info().Msg("disconnecting mongodb")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
