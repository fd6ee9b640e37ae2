package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studentform/studentform/backend/go-services/internal/query"
	"github.com/studentform/studentform/backend/go-services/pkg/middleware"
)

// ResponsesHandler serves the admin listing.
type ResponsesHandler struct {
	svc         *query.Service
	sessions    middleware.SessionValidator
	allowPublic bool
	debug       bool
}

func NewResponsesHandler(svc *query.Service, sessions middleware.SessionValidator, allowPublic, debug bool) *ResponsesHandler {
	return &ResponsesHandler{svc: svc, sessions: sessions, allowPublic: allowPublic, debug: debug}
}

// Register routes under /api. extra runs after the session gate.
func (h *ResponsesHandler) Register(rg *gin.RouterGroup, extra ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{middleware.RequireSession(h.sessions, h.public)}, extra...)
	rg.GET("/responses", append(chain, h.List)...)
	rg.OPTIONS("/responses", middleware.Preflight(http.MethodGet))
}

func (h *ResponsesHandler) public(c *gin.Context) bool {
	return h.allowPublic && c.Query("public") == "1"
}

func (h *ResponsesHandler) List(c *gin.Context) {
	res, err := h.svc.Query(c.Request.Context(), query.ParamsFromValues(c.Request.URL.Query()))
	if err != nil {
		writeError(c, err, h.debug)
		return
	}
	if res.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", res.Payload)
}
