package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lethanhdat107/govivu/internal/chat"
	"github.com/lethanhdat107/govivu/internal/models"
)

// AnswerStore is the Mongo-backed approximate answer cache. Questions are
// stored raw and compared in folded form at lookup time.
type AnswerStore struct {
	coll      *mongo.Collection
	window    time.Duration
	threshold float64
	now       func() time.Time
}

func NewAnswerStore(m *Mongo, window time.Duration, threshold float64) *AnswerStore {
	if window <= 0 {
		window = 15 * 24 * time.Hour
	}
	if threshold <= 0 {
		threshold = 0.85
	}
	return &AnswerStore{coll: m.CachedAnswers, window: window, threshold: threshold, now: time.Now}
}

// Lookup scans entries inside the trailing window and returns the first one
// whose folded question scores strictly above the threshold.
func (s *AnswerStore) Lookup(ctx context.Context, question string) (string, bool, error) {
	cutoff := s.now().UTC().Add(-s.window)
	cursor, err := s.coll.Find(ctx, bson.M{"created_at": bson.M{"$gte": cutoff}})
	if err != nil {
		return "", false, fmt.Errorf("cache scan: %w", err)
	}
	defer cursor.Close(ctx)

	folded := chat.Normalize(question)
	for cursor.Next(ctx) {
		var entry models.CachedAnswer
		if err := cursor.Decode(&entry); err != nil {
			return "", false, fmt.Errorf("decode cache entry: %w", err)
		}
		if chat.DiceCoefficient(folded, chat.Normalize(entry.Question)) > s.threshold {
			return entry.Answer, true, nil
		}
	}
	if err := cursor.Err(); err != nil {
		return "", false, fmt.Errorf("cache scan: %w", err)
	}

	return "", false, nil
}

// Store records a genuine model answer. Degraded apology text and blank
// pairs are refused so transient-failure replies never poison the cache.
func (s *AnswerStore) Store(ctx context.Context, question, answer string) error {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return nil
	}
	if chat.IsDegradedReply(answer) {
		return nil
	}

	entry := models.CachedAnswer{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    answer,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}
