package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tl-its-umich-edu/m-voice/internal/cache"
	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/httperror"
)

// Only the authenticated endpoints are limited.
var limitedPaths = map[string]struct{}{
	"/webhook": {},
	"/cron":    {},
}

// windowLimiter: counts requests per identity in fixed one-minute windows.
type windowLimiter struct {
	limit   int
	counter *cache.TTLCache[string, int]
	now     func() time.Time
	current atomic.Int64
}

func newWindowLimiter(cfg config.HTTPRateLimitConfig) *windowLimiter {
	return &windowLimiter{
		limit:   cfg.RequestsPerMinute,
		counter: cache.NewTTLCache[string, int](cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second),
		now:     time.Now,
	}
}

// allow: records one request for identity and reports whether it is within the limit.
func (l *windowLimiter) allow(identity string) bool {
	window := l.now().Unix() / 60
	if previous := l.current.Swap(window); previous != window {
		l.counter.Sweep()
	}
	key := identity + ":" + strconv.FormatInt(window, 10)
	count := l.counter.Update(key, func(current int, _ bool) int { return current + 1 })
	return count <= l.limit
}

// RateLimit: rejects requests to /webhook and /cron above HTTPRateLimit.RequestsPerMinute per
// identity. A zero limit disables it.
func RateLimit(cfg *config.Config) gin.HandlerFunc {
	if cfg == nil || cfg.HTTPRateLimit.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newWindowLimiter(cfg.HTTPRateLimit)

	return func(c *gin.Context) {
		if _, limited := limitedPaths[c.Request.URL.Path]; !limited || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		identity := rateLimitIdentity(c)
		if !limiter.allow(identity) {
			details := map[string]any{
				"path":             c.Request.URL.Path,
				"identity":         identity,
				"limit_per_minute": limiter.limit,
			}
			status, payload := httperror.Response(httperror.NewRateLimitExceeded(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Next()
	}
}

// Runs ahead of the auth middleware, so the claimed user is counted before it is verified.
func rateLimitIdentity(c *gin.Context) string {
	if user, _, ok := c.Request.BasicAuth(); ok && user != "" {
		return "user:" + hashKey(user)
	}

	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return "ip:" + ip
		}
	}

	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
