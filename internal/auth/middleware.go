package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserKey is where middlewares store the resolved user ID.
const ContextUserKey = "auth.userID"

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := resolveBearer(svc, c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// OptionalAuth resolves an identity when a valid bearer token is present and
// lets anonymous requests through untouched.
func OptionalAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := resolveBearer(svc, c); userID != "" {
			c.Set(ContextUserKey, userID)
		}
		c.Next()
	}
}

// UserID returns the authenticated user's ID, or "" for anonymous callers.
func UserID(c *gin.Context) string {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return ""
	}
	userID, _ := value.(string)
	return userID
}

func resolveBearer(svc *Service, c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}

	claims, err := svc.VerifyToken(strings.TrimSpace(token))
	if err != nil {
		return ""
	}
	return claims.Subject
}
