package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicer/internal/observability/logger"
	"go.uber.org/zap"
)

const rateLimitReasonClientIP = "client-ip"

// PublicRateLimit limits the public invoice endpoints per client IP. A
// limiter failure lets the request through.
func (s *Server) PublicRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		settings := s.invoicing.Get()

		res, err := s.limiter.Allow(ctx, publicRateKey(c.ClientIP()), settings.PublicRateLimit, settings.PublicRateWindow)
		if err != nil {
			logger.FromContext(ctx).Warn("public rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			logger.FromContext(ctx).Warn("public rate limit exceeded",
				zap.String("reason", rateLimitReasonClientIP),
				zap.String("endpoint", endpoint),
			)
			s.recordRateLimitDenied(ctx, endpoint, rateLimitReasonClientIP)

			c.Header("Retry-After", retryAfterSeconds(res.RetryAfter.Seconds()))
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.recordRateLimitAllowed(ctx, endpoint)
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}

func (s *Server) recordRateLimitAllowed(ctx context.Context, endpoint string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
}

func (s *Server) recordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func publicRateKey(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return "public:" + ip
}

// retryAfterSeconds rounds up and never advertises less than one second.
func retryAfterSeconds(seconds float64) string {
	value := int(math.Ceil(seconds))
	if value < 1 {
		value = 1
	}
	return strconv.Itoa(value)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
