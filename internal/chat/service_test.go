package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lethanhdat107/govivu/internal/models"
)

type memoryHistory struct {
	records map[string][]models.Turn
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{records: map[string][]models.Turn{}}
}

func (m *memoryHistory) Load(ctx context.Context, userID string) ([]models.Turn, error) {
	return append([]models.Turn(nil), m.records[userID]...), nil
}

func (m *memoryHistory) AppendUser(ctx context.Context, userID, content string) error {
	m.records[userID] = append(m.records[userID], models.Turn{Role: models.RoleUser, Content: content})
	return nil
}

func (m *memoryHistory) AppendAssistant(ctx context.Context, userID, content string) error {
	if _, ok := m.records[userID]; !ok {
		return nil
	}
	m.records[userID] = append(m.records[userID], models.Turn{Role: models.RoleAssistant, Content: content})
	return nil
}

func (m *memoryHistory) Clear(ctx context.Context, userID string) error {
	m.records[userID] = []models.Turn{}
	return nil
}

type memoryCache struct {
	entries map[string]string
	stored  []string
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (m *memoryCache) Lookup(ctx context.Context, question string) (string, bool, error) {
	for cached, answer := range m.entries {
		if DiceCoefficient(Normalize(question), Normalize(cached)) > 0.85 {
			m.hits++
			return answer, true, nil
		}
	}
	return "", false, nil
}

func (m *memoryCache) Store(ctx context.Context, question, answer string) error {
	if IsDegradedReply(answer) {
		return nil
	}
	m.entries[question] = answer
	m.stored = append(m.stored, question)
	return nil
}

type emptyCatalog struct{}

func (emptyCatalog) Available(ctx context.Context, limit int) ([]models.TourSummary, error) {
	return nil, nil
}

type recordingCompleter struct {
	text  string
	err   error
	calls int
	turns [][]models.Turn
}

func (c *recordingCompleter) Complete(ctx context.Context, turns []models.Turn) (string, error) {
	c.calls++
	c.turns = append(c.turns, turns)
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

func newTestService(history HistoryStore, cache AnswerCache, completer Completer) *Service {
	svc := NewService(history, cache, emptyCatalog{}, completer, zap.NewNop().Sugar())
	svc.now = func() time.Time { return time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestRespondRejectsEmptyMessage(t *testing.T) {
	completer := &recordingCompleter{text: "ok"}
	svc := newTestService(newMemoryHistory(), newMemoryCache(), completer)

	for _, msg := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Respond(context.Background(), "", msg); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("Respond(%q): expected ErrEmptyMessage, got %v", msg, err)
		}
	}
	if completer.calls != 0 {
		t.Fatalf("no provider call expected for empty input")
	}
}

func TestRespondShortCircuitsOffTopic(t *testing.T) {
	history := newMemoryHistory()
	cache := newMemoryCache()
	completer := &recordingCompleter{text: "ok"}
	svc := newTestService(history, cache, completer)

	reply, err := svc.Respond(context.Background(), "user-1", "kết quả bóng đá hôm nay")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != RedirectReply {
		t.Fatalf("expected redirect reply, got %q", reply)
	}
	if completer.calls != 0 {
		t.Fatalf("off-topic message must not reach providers")
	}
	if len(history.records["user-1"]) != 0 {
		t.Fatalf("off-topic message must not be persisted")
	}
	if len(cache.stored) != 0 {
		t.Fatalf("off-topic path must not write to cache")
	}
}

func TestRespondServesCacheHitWithoutProviderOrHistory(t *testing.T) {
	history := newMemoryHistory()
	cache := newMemoryCache()
	cache.entries["Tour Đà Lạt giá bao nhiêu"] = "500k"
	completer := &recordingCompleter{text: "fresh answer"}
	svc := newTestService(history, cache, completer)

	reply, err := svc.Respond(context.Background(), "user-1", "tour đà lạt giá bao nhiêu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "500k" {
		t.Fatalf("expected cached answer verbatim, got %q", reply)
	}
	if completer.calls != 0 {
		t.Fatalf("cache hit must bypass providers")
	}
	if len(history.records["user-1"]) != 0 {
		t.Fatalf("cache hits are not persisted into history")
	}
}

func TestRespondAuthenticatedConversationAccumulates(t *testing.T) {
	history := newMemoryHistory()
	cache := newMemoryCache()
	completer := &recordingCompleter{text: "Đà Lạt tháng 12 rất đẹp! 🌸"}
	svc := newTestService(history, cache, completer)

	if _, err := svc.Respond(context.Background(), "user-1", "tư vấn tour Đà Lạt"); err != nil {
		t.Fatalf("first message failed: %v", err)
	}
	completer.text = "Bạn nên đặt sớm nhé! ✈️"
	if _, err := svc.Respond(context.Background(), "user-1", "đặt tour thế nào"); err != nil {
		t.Fatalf("second message failed: %v", err)
	}

	turns, err := svc.History(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected exactly 4 turns, got %d: %+v", len(turns), turns)
	}
	wantRoles := []string{models.RoleUser, models.RoleAssistant, models.RoleUser, models.RoleAssistant}
	for i, role := range wantRoles {
		if turns[i].Role != role {
			t.Fatalf("turn %d: expected role %s, got %s", i, role, turns[i].Role)
		}
	}

	// The second provider call replays the prior history as context.
	secondCall := completer.turns[1]
	if len(secondCall) != 4 {
		t.Fatalf("expected system + 2 history turns + user, got %d", len(secondCall))
	}
	if secondCall[0].Role != models.RoleSystem {
		t.Fatalf("first turn must be the system instruction")
	}
}

func TestRespondAnonymousIsSingleTurn(t *testing.T) {
	history := newMemoryHistory()
	completer := &recordingCompleter{text: "Chào bạn! 🌴"}
	svc := newTestService(history, newMemoryCache(), completer)

	if _, err := svc.Respond(context.Background(), "", "tư vấn tour Hà Giang"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history.records) != 0 {
		t.Fatalf("anonymous conversation must not be persisted")
	}
	if len(completer.turns[0]) != 2 {
		t.Fatalf("anonymous context is system + user, got %d turns", len(completer.turns[0]))
	}
}

func TestRespondCachesGenuineAnswers(t *testing.T) {
	cache := newMemoryCache()
	completer := &recordingCompleter{text: "Tour Sapa từ 3 triệu nhé! ⛰️"}
	svc := newTestService(newMemoryHistory(), cache, completer)

	if _, err := svc.Respond(context.Background(), "", "tour Sapa giá bao nhiêu"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cache.stored) != 1 || cache.stored[0] != "tour Sapa giá bao nhiêu" {
		t.Fatalf("genuine answer should be cached under the raw question, got %v", cache.stored)
	}
}

func TestRespondDegradesOnTotalProviderFailure(t *testing.T) {
	history := newMemoryHistory()
	cache := newMemoryCache()
	completer := &recordingCompleter{err: &ProviderError{Provider: "secondary", Kind: FailureRateLimited, Status: 429}}
	svc := newTestService(history, cache, completer)

	reply, err := svc.Respond(context.Background(), "user-1", "tour Phú Quốc còn chỗ không")
	if err != nil {
		t.Fatalf("provider failure must not surface as an error: %v", err)
	}
	if reply != FailureReply(FailureRateLimited) {
		t.Fatalf("expected overload sentence, got %q", reply)
	}
	if len(cache.stored) != 0 {
		t.Fatalf("degraded replies must never be cached")
	}

	// The user turn stays recorded and the apology is appended after it.
	turns := history.records["user-1"]
	if len(turns) != 2 || turns[0].Role != models.RoleUser || turns[1].Role != models.RoleAssistant {
		t.Fatalf("unexpected history after degraded reply: %+v", turns)
	}
}

func TestClearThenHistoryIsEmpty(t *testing.T) {
	history := newMemoryHistory()
	completer := &recordingCompleter{text: "ok! 😀"}
	svc := newTestService(history, newMemoryCache(), completer)

	if _, err := svc.Respond(context.Background(), "user-1", "tour Huế có gì hay"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Clear(context.Background(), "user-1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	turns, err := svc.History(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty history after clear, got %+v", turns)
	}
}
