package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/studentform/studentform/backend/go-services/internal/sessions"
)

// SessionCookie names the cookie holding the admin session ID.
const SessionCookie = "admin_session"

// sessionKey is the gin context key for the validated *sessions.Session.
const sessionKey = "session"

// CurrentSession returns the session RequireSession stored, if any.
func CurrentSession(c *gin.Context) *sessions.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*sessions.Session)
	return s
}

// clientKey picks the throttle key: the admin session when present,
// otherwise the client IP.
func clientKey(c *gin.Context) string {
	if s := CurrentSession(c); s != nil {
		return "session:" + s.ID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
