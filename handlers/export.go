package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studentform/studentform/backend/go-services/internal/apperr"
	"github.com/studentform/studentform/backend/go-services/internal/export"
	"github.com/studentform/studentform/backend/go-services/internal/query"
	"github.com/studentform/studentform/backend/go-services/pkg/logger"
	"github.com/studentform/studentform/backend/go-services/pkg/middleware"
)

// Archiver stores an export file and returns a download URL.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// ExportHandler serves record downloads. Archive may be nil.
type ExportHandler struct {
	svc      *query.Service
	sessions middleware.SessionValidator
	archive  Archiver
	debug    bool
	now      func() time.Time
}

func NewExportHandler(svc *query.Service, sessions middleware.SessionValidator, archive Archiver, debug bool) *ExportHandler {
	return &ExportHandler{svc: svc, sessions: sessions, archive: archive, debug: debug, now: time.Now}
}

// Register routes under /api. extra runs after the session gate.
func (h *ExportHandler) Register(rg *gin.RouterGroup, extra ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{middleware.RequireSession(h.sessions, nil)}, extra...)
	rg.GET("/export", append(chain, h.Export)...)
	rg.OPTIONS("/export", middleware.Preflight(http.MethodGet))
}

// Export writes every record matching the listing filters. With archive=1
// the file is uploaded and a link returned instead.
func (h *ExportHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, apperr.BadRequest("Invalid export format. Use csv, json or excel"), h.debug)
		return
	}
	archive := c.Query("archive") == "1"
	if archive && h.archive == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Export archive is not configured"})
		return
	}

	recs, err := h.svc.Collect(c.Request.Context(), query.ParamsFromValues(c.Request.URL.Query()))
	if err != nil {
		writeError(c, err, h.debug)
		return
	}

	var buf bytes.Buffer
	contentType, ext, err := export.Write(&buf, format, recs)
	if err != nil {
		writeError(c, apperr.Internal("Failed to export data", err), h.debug)
		return
	}
	name := export.Filename(h.now(), ext)
	logger.Infow("export", "format", format, "records", len(recs), "archive", archive)

	if archive {
		url, err := h.archive.Archive(c.Request.Context(), name, buf.Bytes(), contentType)
		if err != nil {
			writeError(c, apperr.Internal("Failed to archive export", err), h.debug)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "filename": name, "url": url})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
