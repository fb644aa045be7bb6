package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/devfolio/internal/errors"
)

// HandleRateLimitStatus reports the limits that apply to the requesting IP
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"period": "1 minute",
				},
				"writes_per_minute": gin.H{
					"limit":  rl.config.WriteLimitPerMin,
					"period": "1 minute",
				},
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// HandleAdminRateLimits returns limiter statistics (admin only)
func (rl *RateLimiter) HandleAdminRateLimits() gin.HandlerFunc {
	return func(c *gin.Context) {
		keyCount, err := rl.GetKeyCount(c.Request.Context())
		if err != nil {
			errors.Respond(c, errors.NewInternalError("failed to count rate limit keys", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total_keys":    keyCount,
			"limiter_stats": rl.GetStats(),
			"timestamp":     time.Now().Format(time.RFC3339),
		})
	}
}

// HandleAdminInvalidateIP clears every limit held against an IP (admin only)
func (rl *RateLimiter) HandleAdminInvalidateIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.Param("ip")
		if ip == "" {
			errors.Respond(c, errors.NewValidationError("IP address is required"))
			return
		}

		if err := rl.InvalidateIP(c.Request.Context(), ip); err != nil {
			errors.Respond(c, errors.NewInternalError("failed to invalidate IP rate limits", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "IP rate limits invalidated successfully",
			"ip":        ip,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
