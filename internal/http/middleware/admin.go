package middleware

import (
	"context"
	"net/http"

	"learnjs_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// AdminChecker reads the stored admin flag.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AdminOnly lets a request through only when the stored account is an
// admin. The token claim alone is not trusted because it outlives demotion.
func AdminOnly(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(ContextUserID)
		id, isInt := userID.(int64)
		if !ok || !isInt {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}

		isAdmin, err := checker.IsAdmin(c.Request.Context(), id)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("admin check failed", "user_id", id, "error", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required", "code": "forbidden"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required", "code": "forbidden"})
			return
		}
		c.Set(ContextIsAdmin, true)
		c.Next()
	}
}
