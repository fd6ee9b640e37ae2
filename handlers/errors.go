package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studentform/studentform/backend/go-services/internal/apperr"
	"github.com/studentform/studentform/backend/go-services/pkg/logger"
)

// writeError renders err as {success:false, error, errors?, retryAfter?}.
// The cause is only exposed when debug is set.
func writeError(c *gin.Context, err error, debug bool) {
	e := apperr.As(err)
	body := gin.H{"success": false, "error": e.Message}
	if len(e.Details) > 0 {
		body["errors"] = e.Details
	}
	if e.Kind == apperr.KindRateLimited {
		secs := int(math.Ceil(e.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
		body["retryAfter"] = secs
	}
	if e.Kind == apperr.KindInternal {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, e)
	}
	if debug && e.Err != nil {
		body["details"] = e.Err.Error()
	}
	c.AbortWithStatusJSON(e.Kind.Status(), body)
}
