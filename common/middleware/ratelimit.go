package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pledgekit/patronage/common/ratelimit"
)

// WebhookRateLimit guards the webhook route with the service-wide fixed
// window limit. On limiter errors the request is allowed through: dropping
// deliveries because Redis hiccuped would trade availability for nothing,
// since reconciliation is idempotent anyway.
func WebhookRateLimit(limiter *ratelimit.Limiter, limit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := limiter.CheckWebhookLimit(c.Request().Context(), limit, windowSec)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":               "rate_limit_exceeded",
					"retry_after_seconds": result.RetryAfterSeconds,
				})
			}

			return next(c)
		}
	}
}
