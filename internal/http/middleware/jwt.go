package middleware

import (
	"net/http"
	"strings"

	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWT.
const (
	ContextUserID  = "user_id"
	ContextIsAdmin = "is_admin"
)

// JWT requires a valid "Authorization: Bearer <token>" header.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "unauthorized"})
			return
		}

		claims, err := service.ParseJWT(strings.TrimSpace(token))
		if err != nil {
			logger.WithContext(c.Request.Context()).Debug("rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// OptionalJWT sets the user when a valid bearer token is present and lets
// anonymous requests through. An invalid token is still rejected.
func OptionalJWT() gin.HandlerFunc {
	required := JWT()
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		required(c)
	}
}
