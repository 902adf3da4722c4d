package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lethanhdat107/govivu/internal/models"
)

// ErrEmptyMessage rejects blank input before any classification runs.
var ErrEmptyMessage = errors.New("chat: message is empty")

// HistoryStore persists the per-user conversation. Implementations must
// tolerate AppendAssistant racing a concurrent Clear by skipping silently.
type HistoryStore interface {
	Load(ctx context.Context, userID string) ([]models.Turn, error)
	AppendUser(ctx context.Context, userID, content string) error
	AppendAssistant(ctx context.Context, userID, content string) error
	Clear(ctx context.Context, userID string) error
}

// AnswerCache is the approximate question/answer cache.
type AnswerCache interface {
	Lookup(ctx context.Context, question string) (string, bool, error)
	Store(ctx context.Context, question, answer string) error
}

// TourCatalog exposes the storefront's currently available tours, read-only.
type TourCatalog interface {
	Available(ctx context.Context, limit int) ([]models.TourSummary, error)
}

// Completer produces one reply for a turn sequence.
type Completer interface {
	Complete(ctx context.Context, turns []models.Turn) (string, error)
}

// Service runs the full response pipeline for one incoming message.
type Service struct {
	history   HistoryStore
	cache     AnswerCache
	catalog   TourCatalog
	completer Completer
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewService(history HistoryStore, cache AnswerCache, catalog TourCatalog, completer Completer, logger *zap.SugaredLogger) *Service {
	return &Service{
		history:   history,
		cache:     cache,
		catalog:   catalog,
		completer: completer,
		logger:    logger,
		now:       time.Now,
	}
}

// Respond handles one user message and always returns some reply text unless
// the input itself is invalid. userID is empty for anonymous callers; their
// conversation is single-turn and never persisted.
//
// Cache hits bypass the providers entirely and are not recorded into the
// user's history.
func (s *Service) Respond(ctx context.Context, userID, rawMessage string) (string, error) {
	message := strings.TrimSpace(rawMessage)
	if message == "" {
		return "", ErrEmptyMessage
	}

	if verdict := Classify(message); verdict.ShortcutReply != "" {
		return verdict.ShortcutReply, nil
	}

	if cached, hit, err := s.cache.Lookup(ctx, message); err != nil {
		s.logger.Warnw("answer cache lookup failed", "error", err)
	} else if hit {
		return cached, nil
	}

	authenticated := userID != ""

	var history []models.Turn
	if authenticated {
		loaded, err := s.history.Load(ctx, userID)
		if err != nil {
			s.logger.Warnw("load history failed", "user_id", userID, "error", err)
		} else {
			history = loaded
		}

		// The user turn is persisted before the provider call so a crash
		// mid-request still leaves it recorded.
		if err := s.history.AppendUser(ctx, userID, message); err != nil {
			s.logger.Warnw("append user turn failed", "user_id", userID, "error", err)
		}
	}

	tours, err := s.catalog.Available(ctx, maxContextTours)
	if err != nil {
		s.logger.Warnw("load tour context failed", "error", err)
		tours = nil
	}

	month, year := TargetMonth(Normalize(message), s.now())
	turns := BuildTurns(BuildSystemTurn(month, year, tours), history, message, authenticated)

	reply, degraded := s.complete(ctx, turns)

	if !degraded {
		if err := s.cache.Store(ctx, message, reply); err != nil {
			s.logger.Warnw("answer cache store failed", "error", err)
		}
	}

	if authenticated {
		if err := s.history.AppendAssistant(ctx, userID, reply); err != nil {
			s.logger.Warnw("append assistant turn failed", "user_id", userID, "error", err)
		}
	}

	return reply, nil
}

func (s *Service) complete(ctx context.Context, turns []models.Turn) (reply string, degraded bool) {
	text, err := s.completer.Complete(ctx, turns)
	if err == nil {
		return text, false
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		provErr = &ProviderError{Kind: FailureUnknown, Err: err}
	}
	s.logger.Errorw("all providers failed",
		"failure", provErr.Kind.String(),
		"status", provErr.Status,
		"error", provErr.Err,
	)
	return FailureReply(provErr.Kind), true
}

// History returns the persisted conversation of a user, oldest turn first.
func (s *Service) History(ctx context.Context, userID string) ([]models.Turn, error) {
	return s.history.Load(ctx, userID)
}

// Clear resets the user's conversation to an empty sequence.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.history.Clear(ctx, userID)
}
