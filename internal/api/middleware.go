package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/seoforge/seoforge/pkg/observability"
	"github.com/seoforge/seoforge/pkg/ratelimit"
)

const (
	// RequestIDHeader carries the correlation ID; inbound values are
	// trusted so callers can stitch traces across services.
	RequestIDHeader = "X-Request-ID"

	// UserIDHeader identifies the caller for per-user rate limiting.
	// Anonymous requests fall back to the client IP.
	UserIDHeader = "X-User-ID"

	// Process-wide admission cap, independent of per-user quotas.
	globalRateLimitPerSecond = 200
	globalRateLimitBurst     = 400
)

// RequestIDMiddleware assigns a correlation ID to every request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequestLoggingMiddleware logs one line per request with latency and status
func RequestLoggingMiddleware(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request", map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  c.GetString("request_id"),
		})
	}
}

// GlobalRateLimitMiddleware caps total request throughput for the process
// using a token bucket. It protects the subsystem itself; per-user fairness
// is the cache-backed limiter's job.
func GlobalRateLimitMiddleware(perSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "server is at capacity, retry shortly",
			})
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware enforces the per-user fixed-window quota. A limit of 0
// uses the limiter's configured default.
func RateLimitMiddleware(limiter *ratelimit.Limiter, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			userID = c.ClientIP()
		}

		result := limiter.Check(c.Request.Context(), userID, c.FullPath(), limit)

		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "rate limit exceeded",
				"resetTime": result.ResetTime.UTC().Format(time.RFC3339),
			})
			return
		}
		c.Next()
	}
}
