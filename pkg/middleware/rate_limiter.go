package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimiterConfig configures per-client request limiting.
type RateLimiterConfig struct {
	// Rate in ulule format, e.g. "300-M" or "10-S".
	Rate string `json:"rate"`
	// SkipPaths are matched by prefix, e.g. "/metrics".
	SkipPaths []string `json:"skip_paths"`
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	cfg      RateLimiterConfig
	instance *limiter.Limiter
}

// NewRateLimiter builds an in-memory limiter. An external store (redis)
// can replace the memory store for multi-instance deployments.
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) (*RateLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = memory.NewStore()
	}
	return &RateLimiter{
		cfg:      cfg,
		instance: limiter.New(store, rate),
	}, nil
}

// Middleware returns the gin handler enforcing the limit.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range l.cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		lctx, err := l.instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			// A broken limiter store must not take the API down.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
