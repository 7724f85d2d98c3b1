package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gestion-optica-api/internal/ratelimit"
	"gestion-optica-api/internal/telemetry"
	"gestion-optica-api/models"

	"github.com/gin-gonic/gin"
)

const RateLimitMessage = "Demasiadas solicitudes desde esta IP, por favor intente de nuevo más tarde."

// RateLimitMiddleware applies the fixed-window limiter keyed by client IP.
// Allowed requests pass untouched; only rejections carry headers.
func RateLimitMiddleware(lim *ratelimit.Limiter, log *slog.Logger, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.ClientIP()

		decision, err := lim.Allow(c.Request.Context(), identity)
		if err != nil {
			// Fail open - don't block requests if the store is down
			log.Warn("Rate limit check failed", "identity", identity, "error", err)
			c.Next()
			return
		}

		if !decision.Allowed {
			now := time.Now()
			retryAfter := decision.RetryAfter(now)
			resetAt := now.Add(time.Duration(retryAfter) * time.Second)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			metrics.RecordRateLimitReject(c.FullPath())
			log.Warn("Rate limit exceeded",
				"identity", identity,
				"count", decision.Count,
				"limit", decision.Limit,
				"path", c.Request.URL.Path,
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.RateLimitRejection{
				Code:       http.StatusTooManyRequests,
				Error:      "Too Many Requests",
				Message:    RateLimitMessage,
				RetryAfter: retryAfter,
			})
			return
		}

		c.Next()
	}
}
