package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studentform/studentform/backend/go-services/pkg/logger"
)

// RequestLogger logs one line per request through the package logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).Round(time.Microsecond),
			"ip", c.ClientIP(),
		)
	}
}
