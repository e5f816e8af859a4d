package tickhttp

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"tickagent/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"result": "failure", "message": msg})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s req=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), c.GetString(requestIDKey), time.Since(start))
	}
}

func recoverJSON(c *gin.Context, recovered any) {
	logger.Errorf("HTTP panic on %s %s req=%s: %v", c.Request.Method, c.Request.URL.Path, c.GetString(requestIDKey), recovered)
	fail(c, http.StatusInternalServerError, "Internal Server Error")
}

// requireAPIKey compares the trimmed header value with the configured key.
func requireAPIKey(header, key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		got := []byte(strings.TrimSpace(c.GetHeader(header)))
		if len(got) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			logger.Warnf("auth rejected %s %s from %s (header %q %s)",
				c.Request.Method, c.Request.URL.Path, c.ClientIP(), header, logger.Mask(string(got)))
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

// rateLimit caps tick submissions process-wide; perSec <= 0 disables it.
func rateLimit(perSec float64, burst int) gin.HandlerFunc {
	if perSec <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.Warnf("rate limit exceeded for %s from %s", c.Request.URL.Path, c.ClientIP())
			fail(c, http.StatusTooManyRequests, "Too Many Requests")
			return
		}
		c.Next()
	}
}
