package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lethanhdat107/govivu/internal/models"
)

// TourStore reads the storefront's tour collection. The chat subsystem only
// ever projects title and price; it never mutates tours.
type TourStore struct {
	coll *mongo.Collection
}

func NewTourStore(m *Mongo) *TourStore {
	return &TourStore{coll: m.Tours}
}

func (s *TourStore) Available(ctx context.Context, limit int) ([]models.TourSummary, error) {
	if limit <= 0 {
		limit = 5
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.M{"title": 1, "price": 1})

	cursor, err := s.coll.Find(ctx, bson.M{"available": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("find tours: %w", err)
	}
	defer cursor.Close(ctx)

	var tours []models.TourSummary
	if err := cursor.All(ctx, &tours); err != nil {
		return nil, fmt.Errorf("decode tours: %w", err)
	}
	return tours, nil
}
