package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/studentform/studentform/backend/go-services/pkg/metrics"
)

// ThrottleLabel is the limiter label used in metrics.
const ThrottleLabel = "throttle"

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// Key selection: the admin session when RequireSession ran first, otherwise the client IP.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	// per-key limiter store (simple in-memory token-bucket)
	var limiters sync.Map // map[string]*rate.Limiter

	return func(c *gin.Context) {
		key := clientKey(c)
		v, ok := limiters.Load(key)
		if !ok {
			v, _ = limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
		}

		if !v.(*rate.Limiter).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues(ThrottleLabel).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Rate limit exceeded", "retryAfter": 1})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues(ThrottleLabel).Inc()
		c.Next()
	}
}
