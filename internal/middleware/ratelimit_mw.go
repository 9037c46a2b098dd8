package middleware

import (
	"math"
	"net/http"
	"strconv"

	"user_management/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimit admits requests against the named tier. Authenticated callers are
// counted per user unless the tier keys on the client address. A nil limiter
// disables the check.
func RateLimit(limiter *ratelimit.Limiter, tierName string, logger logrus.FieldLogger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	tier, _ := limiter.Tier(tierName)

	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if !tier.ByAddress {
			if user, ok := CurrentUser(c); ok {
				subject = "user:" + strconv.FormatInt(user.ID, 10)
			}
		}

		d, err := limiter.Admit(c.Request.Context(), subject, tierName)
		if err != nil {
			logger.WithError(err).WithField("tier", tierName).Error("rate limit check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Rate limit check failed",
				"errors":  gin.H{"general": []string{"An unexpected error occurred"}},
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			logger.WithFields(logrus.Fields{"tier": tierName, "subject": subject, "retry_after": secs}).Info("request throttled")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"message":     tier.Message,
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}
