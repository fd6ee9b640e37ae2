package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studentform/studentform/backend/go-services/internal/apperr"
	"github.com/studentform/studentform/backend/go-services/internal/ratelimit"
	"github.com/studentform/studentform/backend/go-services/internal/sessions"
	"github.com/studentform/studentform/backend/go-services/pkg/logger"
	"github.com/studentform/studentform/backend/go-services/pkg/middleware"
)

// LoginRequest is the admin login body.
type LoginRequest struct {
	Password string `json:"password"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	sessionsSvc *sessions.Service
	passwords   *sessions.PasswordVerifier
	limiter     *ratelimit.Limiter
	debug       bool
}

func NewAuthHandler(s *sessions.Service, p *sessions.PasswordVerifier, limiter *ratelimit.Limiter, debug bool) *AuthHandler {
	return &AuthHandler{sessionsSvc: s, passwords: p, limiter: limiter, debug: debug}
}

// Register routes under /api
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
	rg.GET("/login", h.Status)
	rg.DELETE("/login", h.Logout)
	rg.OPTIONS("/login", middleware.Preflight(http.MethodGet, http.MethodPost, http.MethodDelete))
}

// Login checks the shared admin password and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	if !h.limiter.Allow(c.Request.Context(), ip) {
		logger.Warnw("login rate limited", "ip", ip)
		writeError(c, apperr.RateLimited("Too many login attempts. Please try again later.", h.limiter.Window()), h.debug)
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.BadRequest("Invalid request body"), h.debug)
		return
	}
	if !h.passwords.Verify(req.Password) {
		logger.Warnw("admin login failed", "ip", ip)
		writeError(c, apperr.Unauthorized("Invalid password"), h.debug)
		return
	}

	sess, err := h.sessionsSvc.CreateSession(c.Request.Context(), ip, c.Request.UserAgent())
	if err != nil {
		writeError(c, apperr.Internal("Failed to create session", err), h.debug)
		return
	}
	h.setCookie(c, sess.ID, int(h.sessionsSvc.TTL().Seconds()))
	logger.Infow("admin login", "ip", ip)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful"})
}

// Status reports whether the cookie names an active session.
func (h *AuthHandler) Status(c *gin.Context) {
	id, _ := c.Cookie(middleware.SessionCookie)
	sess, err := h.sessionsSvc.Validate(c.Request.Context(), id)
	if err != nil {
		writeError(c, apperr.Internal("Failed to check session", err), h.debug)
		return
	}
	if sess == nil {
		c.JSON(http.StatusOK, gin.H{"loggedIn": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loggedIn": true, "session": gin.H{
		"timestamp":    sess.CreatedAt,
		"lastActivity": sess.LastActivity,
		"expiresAt":    sess.ExpiresAt,
	}})
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if id, err := c.Cookie(middleware.SessionCookie); err == nil {
		if err := h.sessionsSvc.Delete(c.Request.Context(), id); err != nil {
			logger.Warnf("logout: %v", err)
		}
	}
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	secure := c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", secure, true)
}
