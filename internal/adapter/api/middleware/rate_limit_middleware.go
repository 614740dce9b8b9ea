package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"tunechat/internal/infrastructure/ratelimit"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
	"tunechat/pkg/response"
)

// RateLimit limits an action per authenticated user, falling back to the
// client IP for anonymous requests.
func RateLimit(rl *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get("uid").(string)
			if key == "" {
				key = c.RealIP()
			}

			allowed, wait := rl.Allow(key, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s exceeded %s (retry in %v)", key, action, wait)
				c.Response().Header().Set("Retry-After", retryAfter(wait.Seconds()))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded for "+action))
			}

			return next(c)
		}
	}
}

func retryAfter(seconds float64) string {
	secs := int(math.Ceil(seconds))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
