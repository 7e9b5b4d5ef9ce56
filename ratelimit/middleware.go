package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// Skipper bypasses the limiter, e.g. for health probes.
	Skipper middleware.Skipper
	// KeyFunc returns the identity to count. Defaults to IPKey.
	KeyFunc func(c echo.Context) string
}

// IPKey identifies a client by echo's RealIP: X-Forwarded-For, then
// X-Real-IP, then the remote address.
func IPKey(c echo.Context) string {
	return "ip:" + c.RealIP()
}

// Middleware counts every request with l and answers 429 once the limit is
// exceeded. X-RateLimit-Limit and X-RateLimit-Remaining are set on every
// counted response.
func Middleware(l *Limiter, cfg MiddlewareConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPKey
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			res := l.Allow(c.Request().Context(), cfg.KeyFunc(c))
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(res.RetryAfter(l.now())))
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate_limit_exceeded"})
			}
			return next(c)
		}
	}
}
