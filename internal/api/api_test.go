package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lethanhdat107/govivu/internal/auth"
	"github.com/lethanhdat107/govivu/internal/chat"
	"github.com/lethanhdat107/govivu/internal/models"
)

type memoryUsers struct {
	byUsername map[string]*models.User
}

func (m *memoryUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.byUsername[username], nil
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}

func (m *memoryUsers) Insert(ctx context.Context, user *models.User) error {
	m.byUsername[user.Username] = user
	return nil
}

type stubChat struct {
	replies   map[string]string
	histories map[string][]models.Turn
	respondFn func(userID, message string) (string, error)
}

func newStubChat() *stubChat {
	return &stubChat{replies: map[string]string{}, histories: map[string][]models.Turn{}}
}

func (s *stubChat) Respond(ctx context.Context, userID, message string) (string, error) {
	if s.respondFn != nil {
		return s.respondFn(userID, message)
	}
	if message == "" || len(bytes.TrimSpace([]byte(message))) == 0 {
		return "", chat.ErrEmptyMessage
	}
	if reply, ok := s.replies[message]; ok {
		return reply, nil
	}
	return "default reply", nil
}

func (s *stubChat) History(ctx context.Context, userID string) ([]models.Turn, error) {
	return s.histories[userID], nil
}

func (s *stubChat) Clear(ctx context.Context, userID string) error {
	s.histories[userID] = []models.Turn{}
	return nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, *stubChat, *auth.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService, err := auth.NewService("test-secret", time.Hour, &memoryUsers{byUsername: map[string]*models.User{}})
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}

	chatStub := newStubChat()
	handler := NewHandler(authService, chatStub, zap.NewNop().Sugar())
	router := gin.New()
	handler.RegisterRoutes(router)

	return router, chatStub, authService
}

func registerAndGetToken(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("expected token in registration response")
	}
	return token
}

func TestPostChatAnonymous(t *testing.T) {
	router, chatStub, _ := setupTestRouter(t)
	chatStub.replies["tour nào rẻ nhất"] = "Tour Đà Lạt chỉ từ 2 triệu! 🎉"

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/chats", map[string]string{"message": "tour nào rẻ nhất"})
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["reply"] != "Tour Đà Lạt chỉ từ 2 triệu! 🎉" {
		t.Fatalf("unexpected reply: %v", resp["reply"])
	}
}

func TestPostChatEmptyMessageIs400(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/chats", map[string]string{"message": "   "})
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["error"] == nil || resp["error"] == "" {
		t.Fatalf("expected error field in response, got %v", resp)
	}
}

func TestPostChatUnexpectedFailureIs500(t *testing.T) {
	router, chatStub, _ := setupTestRouter(t)
	chatStub.respondFn = func(userID, message string) (string, error) {
		return "", context.DeadlineExceeded
	}

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/chats", map[string]string{"message": "hello"})
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestGetChatsRequiresAuth(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestGetChatsReturnsHistory(t *testing.T) {
	router, chatStub, authService := setupTestRouter(t)
	token := registerAndGetToken(t, router)

	claims, err := authService.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token failed: %v", err)
	}
	chatStub.histories[claims.Subject] = []models.Turn{
		{Role: models.RoleUser, Content: "u1"},
		{Role: models.RoleAssistant, Content: "a1"},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Code    int           `json:"code"`
		History []models.Turn `json:"history"`
	}
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp.Code != 200 {
		t.Fatalf("expected code 200 in body, got %d", resp.Code)
	}
	if len(resp.History) != 2 || resp.History[0].Content != "u1" {
		t.Fatalf("unexpected history: %+v", resp.History)
	}
}

func TestGetChatsEmptyHistoryIsArray(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	token := registerAndGetToken(t, router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"history":[]`)) {
		t.Fatalf("expected empty history array, got %s", rec.Body.String())
	}
}

func TestPatchChatsClear(t *testing.T) {
	router, chatStub, authService := setupTestRouter(t)
	token := registerAndGetToken(t, router)

	claims, err := authService.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token failed: %v", err)
	}
	chatStub.histories[claims.Subject] = []models.Turn{{Role: models.RoleUser, Content: "u1"}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/chats/clear", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if len(chatStub.histories[claims.Subject]) != 0 {
		t.Fatalf("expected cleared history")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	if !bytes.Contains(rec.Body.Bytes(), []byte(`"history":[]`)) {
		t.Fatalf("expected empty history after clear, got %s", rec.Body.String())
	}
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
