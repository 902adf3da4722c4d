package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lethanhdat107/govivu/internal/auth"
	"github.com/lethanhdat107/govivu/internal/chat"
	"github.com/lethanhdat107/govivu/internal/models"
)

// ChatResponder is the chat subsystem as seen by the HTTP layer.
type ChatResponder interface {
	Respond(ctx context.Context, userID, message string) (string, error)
	History(ctx context.Context, userID string) ([]models.Turn, error)
	Clear(ctx context.Context, userID string) error
}

type Handler struct {
	authService *auth.Service
	chat        ChatResponder
	logger      *zap.SugaredLogger
}

func NewHandler(authService *auth.Service, chatService ChatResponder, logger *zap.SugaredLogger) *Handler {
	return &Handler{authService: authService, chat: chatService, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.handleRegister)
	authGroup.POST("/login", h.handleLogin)

	apiGroup.GET("/chats", auth.RequireAuth(h.authService), h.handleChatHistory)
	apiGroup.POST("/chats", auth.OptionalAuth(h.authService), h.handleChatMessage)
	apiGroup.PATCH("/chats/clear", auth.RequireAuth(h.authService), h.handleChatClear)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameRequired), errors.Is(err, auth.ErrPasswordTooWeak):
			writeError(c, http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, auth.ErrUserExists), errors.Is(err, auth.ErrEmailExists):
			writeError(c, http.StatusConflict, err.Error(), err)
		default:
			writeError(c, http.StatusInternalServerError, "failed to register user", err)
		}
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(result))
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(c, http.StatusUnauthorized, err.Error(), err)
			return
		}
		writeError(c, http.StatusInternalServerError, "failed to login", err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

func (h *Handler) handleChatHistory(c *gin.Context) {
	history, err := h.chat.History(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.logger.Errorw("load chat history failed", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to load chat history", err)
		return
	}
	if history == nil {
		history = []models.Turn{}
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "history": history})
}

func (h *Handler) handleChatMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	reply, err := h.chat.Respond(c.Request.Context(), auth.UserID(c), req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
			return
		}
		h.logger.Errorw("chat respond failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate reply"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *Handler) handleChatClear(c *gin.Context) {
	if err := h.chat.Clear(c.Request.Context(), auth.UserID(c)); err != nil {
		h.logger.Errorw("clear chat history failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "failed to clear chat history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "chat history cleared"})
}

func newAuthResponse(result *auth.AuthResult) gin.H {
	return gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"user": gin.H{
			"id":        result.User.ID,
			"username":  result.User.Username,
			"email":     result.User.Email,
			"createdAt": result.User.CreatedAt.Format(time.RFC3339),
		},
	}
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
