package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lethanhdat107/govivu/internal/models"
)

// UserStore persists application users. Missing users are reported as
// (nil, nil) so callers can distinguish absence from storage failure.
type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(m *Mongo) *UserStore {
	return &UserStore{coll: m.Users}
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}
