package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lethanhdat107/govivu/internal/models"
)

// ConversationStore keeps one conversation document per user.
type ConversationStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewConversationStore(m *Mongo) *ConversationStore {
	return &ConversationStore{coll: m.Conversations, now: time.Now}
}

func (s *ConversationStore) Load(ctx context.Context, userID string) ([]models.Turn, error) {
	var record models.Conversation
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return record.History, nil
}

// AppendUser records the user's turn, creating the record lazily on the
// first authenticated message.
func (s *ConversationStore) AppendUser(ctx context.Context, userID, content string) error {
	turn := models.Turn{Role: models.RoleUser, Content: content}
	update := bson.M{
		"$push":        bson.M{"history": turn},
		"$set":         bson.M{"updated_at": s.now().UTC()},
		"$setOnInsert": bson.M{"_id": uuid.NewString(), "user_id": userID},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("append user turn: %w", err)
	}
	return nil
}

// AppendAssistant records the assistant's turn. A record cleared between the
// user append and this call is skipped silently; the reply already went out.
func (s *ConversationStore) AppendAssistant(ctx context.Context, userID, content string) error {
	turn := models.Turn{Role: models.RoleAssistant, Content: content}
	update := bson.M{
		"$push": bson.M{"history": turn},
		"$set":  bson.M{"updated_at": s.now().UTC()},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("append assistant turn: %w", err)
	}
	return nil
}

// Clear resets the history to an empty sequence; the record itself survives.
func (s *ConversationStore) Clear(ctx context.Context, userID string) error {
	update := bson.M{
		"$set": bson.M{"history": []models.Turn{}, "updated_at": s.now().UTC()},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}
