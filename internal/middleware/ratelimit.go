package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/response"
)

// RateLimiter throttles write endpoints with a fixed-window counter in
// Redis, so the limit holds across replicas. Requests are keyed by student
// ID when auth middleware already ran, by client IP otherwise.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	log    zerolog.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  int64(limit),
		window: window,
		log:    log.With().Str("component", "ratelimit").Logger(),
	}
}

// Middleware returns the Gin handler enforcing the limit. Redis errors
// fail open; throttling is protection, not a correctness gate.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.ClientIP()
		if claims := GetClaims(c); claims != nil {
			subject = claims.StudentID.String()
		}
		key := config.CacheKey.RateLimitKey(subject, c.FullPath())

		ctx := c.Request.Context()
		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			rl.log.Warn().Err(err).Msg("rate limit counter unavailable")
			c.Next()
			return
		}
		if count == 1 {
			rl.rdb.Expire(ctx, key, rl.window)
		}

		if count > rl.limit {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimited)
			return
		}
		c.Next()
	}
}
