package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/Thrusbalda/auto-work-log/internal/errors"
)

// PerMinute builds a limiter allowing n requests per minute with a burst of n.
func PerMinute(n int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
}

// RateLimit rejects requests once limiter is exhausted.
func RateLimit(limiter *rate.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow() {
			c.Next()
			return
		}

		retryAfter := 1
		if limit := float64(limiter.Limit()); limit > 0 {
			retryAfter = int(math.Ceil(1 / limit))
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		logger.Warn("rate limit exceeded", zap.String("path", c.FullPath()))
		writeError(c, apperrors.TooManyRequests(""))
	}
}
