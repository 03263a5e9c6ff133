// Package ratelimit provides a per-client-IP rate limiting Gin
// middleware, adapted from the agent server's API rate limiter to
// guard the validation HTTP endpoint instead of a backup API.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// New builds a Gin middleware allowing `requests` calls per `period`
// per client IP, backed by an in-process store.
func New(requests int64, period time.Duration) gin.HandlerFunc {
	rate := limiter.Rate{Period: period, Limit: requests}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		ctx, err := instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rate limiter error"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(rate.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			retryAfter := time.Until(time.Unix(ctx.Reset, 0)).Seconds()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(int64(retryAfter), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int64(retryAfter),
			})
			return
		}

		c.Next()
	}
}
