package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lethanhdat107/govivu/internal/utils"
)

type Mongo struct {
	Client        *mongo.Client
	Database      *mongo.Database
	Users         *mongo.Collection
	Conversations *mongo.Collection
	CachedAnswers *mongo.Collection
	Tours         *mongo.Collection
}

func NewMongo(ctx context.Context, cfg utils.MongoConfig) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}

	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	database := client.Database(cfg.Database)
	store := &Mongo{
		Client:        client,
		Database:      database,
		Users:         database.Collection("users"),
		Conversations: database.Collection("conversations"),
		CachedAnswers: database.Collection("cached_answers"),
		Tours:         database.Collection("tours"),
	}

	return store, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return m.Client.Disconnect(ctx)
}

// EnsureCollections creates the indexes the chat subsystem relies on. Cached
// answers get a TTL index at the lookup window horizon so stale rows are
// evicted instead of accumulating forever.
func (m *Mongo) EnsureCollections(ctx context.Context, cacheWindow time.Duration) error {
	if m == nil || m.Database == nil {
		return fmt.Errorf("mongo: database not initialised")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := m.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo: ensure user index: %w", err)
	}

	_, err = m.Conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo: ensure conversation index: %w", err)
	}

	if cacheWindow <= 0 {
		cacheWindow = 15 * 24 * time.Hour
	}
	_, err = m.CachedAnswers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(cacheWindow / time.Second)),
	})
	if err != nil {
		return fmt.Errorf("mongo: ensure cached answer index: %w", err)
	}

	_, err = m.Tours.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "available", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo: ensure tour index: %w", err)
	}

	return nil
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return 10 * time.Second
}
