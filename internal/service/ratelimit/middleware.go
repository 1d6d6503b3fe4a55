package ratelimit

import (
	"strconv"

	xhttp "StockCast/pkg/http"

	"github.com/labstack/echo/v4"
)

// Middleware rejects callers over their rate with 429. Callers are keyed
// by client IP.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	retryAfter := "60"
	if l.limit > 0 {
		retryAfter = strconv.Itoa(int(1/float64(l.limit)) + 1)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.Allow(c.RealIP()) {
				return next(c)
			}
			c.Response().Header().Set("Retry-After", retryAfter)
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
	}
}
