package ratelimit

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/devfolio/internal/errors"
)

// IPRateLimitMiddleware applies the API-wide per-IP limit
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			// Don't block requests on limiter failure
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			rl.reject(c, result)
			return
		}

		c.Next()
	}
}

// EndpointRateLimitMiddleware applies a tighter per-IP limit to one endpoint
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowEndpoint(c.Request.Context(), endpoint, ip, limit)
		if err != nil {
			slog.Error("Endpoint rate limit check failed", "endpoint", endpoint, "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Endpoint-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Endpoint-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			rl.reject(c, result)
			return
		}

		c.Next()
	}
}

// WriteRateLimitMiddleware applies the configured write limit to one endpoint
func (rl *RateLimiter) WriteRateLimitMiddleware(endpoint string) gin.HandlerFunc {
	return rl.EndpointRateLimitMiddleware(endpoint, rl.config.WriteLimitPerMin)
}

func (rl *RateLimiter) reject(c *gin.Context, result *Result) {
	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitIPBlock()
	}

	retryAfter := int(result.RetryAfter.Round(time.Second).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))

	errors.Respond(c, errors.NewRateLimitError(strconv.Itoa(retryAfter)+"s"))
}
