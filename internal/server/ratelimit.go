package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PublicRateLimit throttles the unauthenticated calculator routes per client IP.
// Redis failures fail open so a cache outage does not take the catalog down.
func (s *Server) PublicRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.publicLimiter.Enabled() {
			c.Next()
			return
		}

		endpoint := c.FullPath()
		ctx := c.Request.Context()
		result, err := s.publicLimiter.Allow(ctx, strings.TrimSpace(c.ClientIP()))
		if err != nil {
			s.log.Warn("public rate limit unavailable", zap.String("endpoint", endpoint), zap.Error(err))
			s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, "bucket_empty")
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
