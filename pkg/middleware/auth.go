package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studentform/studentform/backend/go-services/internal/sessions"
	"github.com/studentform/studentform/backend/go-services/pkg/logger"
)

// SessionValidator is the minimal interface the middleware depends on
type SessionValidator interface {
	Validate(ctx context.Context, id string) (*sessions.Session, error)
}

// RequireSession returns a Gin middleware that admits requests carrying a
// valid admin_session cookie. When public is non-nil and reports true for a
// request, the check is skipped.
func RequireSession(v SessionValidator, public func(*gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if public != nil && public(c) {
			c.Next()
			return
		}
		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}

		sess, err := v.Validate(c.Request.Context(), id)
		if err != nil {
			logger.Errorf("session check: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
			return
		}
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Session expired or invalid"})
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}
