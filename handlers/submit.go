package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studentform/studentform/backend/go-services/internal/apperr"
	"github.com/studentform/studentform/backend/go-services/internal/submission"
	"github.com/studentform/studentform/backend/go-services/pkg/middleware"
)

// maxSubmitBody bounds the request body read for one submission.
const maxSubmitBody = 64 << 10

// SubmitHandler accepts public form posts.
type SubmitHandler struct {
	svc   *submission.Service
	debug bool
}

func NewSubmitHandler(svc *submission.Service, debug bool) *SubmitHandler {
	return &SubmitHandler{svc: svc, debug: debug}
}

// Register routes under /api
func (h *SubmitHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/submit", h.Submit)
	rg.OPTIONS("/submit", middleware.Preflight(http.MethodPost))
}

func (h *SubmitHandler) Submit(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSubmitBody))
	if err != nil {
		writeError(c, apperr.BadRequest("Invalid request body"), h.debug)
		return
	}
	rc, err := h.svc.Submit(c.Request.Context(), body, submission.Client{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		writeError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Form submitted successfully", "data": rc})
}
