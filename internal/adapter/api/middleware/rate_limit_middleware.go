package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"snackswap/internal/infrastructure/ratelimit"
	"snackswap/internal/usecase"
	"snackswap/pkg/errors"
	"snackswap/pkg/logger"
	"snackswap/pkg/response"
)

// RateLimit throttles requests per caller: the authenticated user when known,
// the client IP otherwise.
func RateLimit(limiter usecase.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if uid, ok := c.Get("uid").(string); ok && uid != "" {
				key = "user:" + uid
			}

			if allowed, wait := limiter.Allow(key, ratelimit.ActionRequest); !allowed {
				logger.Warn("RATE LIMIT: blocked %s %s for %s (retry in %v)", c.Request().Method, c.Path(), key, wait)
				c.Response().Header().Set("Retry-After", formatSeconds(wait.Seconds()))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded", nil))
			}
			return next(c)
		}
	}
}

func formatSeconds(s float64) string {
	n := int(math.Ceil(s))
	if n < 1 {
		n = 1
	}
	return strconv.Itoa(n)
}
